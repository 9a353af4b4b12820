package replay

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"autoresolve/internal/logging"
)

// RetentionPolicy defines how many replay bundles are retained on disk.
type RetentionPolicy struct {
	MaxBundles int
	MaxAge     time.Duration
}

// StorageStats summarises the disk footprint of retained bundles.
type StorageStats struct {
	Bundles   int
	Removed   int
	Bytes     int64
	LastSweep time.Time
}

// Cleaner prunes bundle directories according to a retention policy.
type Cleaner struct {
	dir    string
	policy RetentionPolicy
	log    *logging.Logger
	now    func() time.Time
}

// NewCleaner constructs a cleaner for the provided replay root.
func NewCleaner(dir string, policy RetentionPolicy, logger *logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.L()
	}
	return &Cleaner{dir: dir, policy: policy, log: logger, now: time.Now}
}

type bundleDir struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep removes bundles beyond the policy and reports what remains. Only directories
// holding a header are considered bundles; anything else under the root is left alone.
func (c *Cleaner) Sweep() (StorageStats, error) {
	stats := StorageStats{LastSweep: c.now()}
	if strings.TrimSpace(c.dir) == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats, fmt.Errorf("scan replay root: %w", err)
	}

	//1.- Collect bundles newest first so the count limit favours recent battles.
	var bundles []bundleDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		info, err := os.Stat(filepath.Join(path, HeaderFile))
		if err != nil {
			continue
		}
		size, err := directorySize(path)
		if err != nil {
			c.log.Warn("replay retention size failed", logging.Error(err), logging.String("path", path))
			continue
		}
		bundles = append(bundles, bundleDir{path: path, size: size, modTime: info.ModTime()})
	}
	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].modTime.Equal(bundles[j].modTime) {
			return bundles[i].path > bundles[j].path
		}
		return bundles[i].modTime.After(bundles[j].modTime)
	})

	//2.- Apply age first, then the count cap on whatever survived.
	kept := 0
	for _, bundle := range bundles {
		var reasons []string
		if c.policy.MaxAge > 0 && stats.LastSweep.Sub(bundle.modTime) > c.policy.MaxAge {
			reasons = append(reasons, fmt.Sprintf("age>%s", c.policy.MaxAge))
		}
		if c.policy.MaxBundles > 0 && kept >= c.policy.MaxBundles {
			reasons = append(reasons, fmt.Sprintf(">=%d bundles", c.policy.MaxBundles))
		}
		if len(reasons) > 0 {
			err := os.RemoveAll(bundle.path)
			if err == nil {
				stats.Removed++
				c.log.Info("replay retention removed bundle", logging.String("bundle", bundle.path), logging.String("reason", strings.Join(reasons, ", ")))
				continue
			}
			c.log.Warn("replay retention removal failed", logging.Error(err), logging.String("bundle", bundle.path))
		}
		kept++
		stats.Bundles++
		stats.Bytes += bundle.size
	}
	return stats, nil
}

func directorySize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
