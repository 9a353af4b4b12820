package report

// Stable event codes. Presentation layers map them onto message templates.
const (
	CodeAttackStart      = 2001
	CodeToHitValue       = 2003
	CodeCannotSucceed    = 2010
	CodeAttackMiss       = 2012
	CodeAttackHit        = 2013
	CodeAttackRoll       = 2020
	CodeWeaponExplosion  = 2030
	CodeExplosionDamage  = 2031
	CodeStressEpisode    = 3090
	CodeUnitCrippled     = 3091
	CodeUnitDestroyed    = 3092
	CodeFormationLost    = 3093
	CodeTargetingCrit    = 3094
	CodeCriticalCheck    = 3095
	CodeDamageCrit       = 3096
	CodeNoCrit           = 3097
	CodeDamageDealt      = 3100
	CodeMoraleCheckStart = 4500
	CodeMoraleCheckRoll  = 4501
	CodeMoraleSuccess    = 4502
	CodeMoraleFailure    = 4503
)

// templates holds the default English rendering for each code.
var templates = map[int]string{
	CodeAttackStart:      "<data> attacks <data>.",
	CodeToHitValue:       "Needs <data> to hit (<data>).",
	CodeCannotSucceed:    "Attack cannot succeed: <data>.",
	CodeAttackMiss:       " and misses.",
	CodeAttackHit:        " and hits!",
	CodeAttackRoll:       "<data> rolls <data>",
	CodeWeaponExplosion:  "Roll of 2 with a pulse weapon: <data> explodes on <data>!",
	CodeExplosionDamage:  "<data> takes <data> explosion damage from <data>, <data> armor remaining.",
	CodeStressEpisode:    "High-stress episode!",
	CodeUnitCrippled:     "<data> is crippled!",
	CodeUnitDestroyed:    "<data> is destroyed!",
	CodeFormationLost:    "<data> has been wiped out!",
	CodeTargetingCrit:    "Targeting critical on <data> (<data> total).",
	CodeCriticalCheck:    "Checking for critical effects...",
	CodeDamageCrit:       "Damage critical on <data> (<data> total).",
	CodeNoCrit:           "No critical effect.",
	CodeDamageDealt:      "<data> takes <data> damage, <data> armor remaining.",
	CodeMoraleCheckStart: "<data> must check morale, needs <data>.",
	CodeMoraleCheckRoll:  "<data> rolls <data> for morale.",
	CodeMoraleSuccess:    "<data> holds its nerve.",
	CodeMoraleFailure:    "<data> morale drops from <data> to <data>.",
}
