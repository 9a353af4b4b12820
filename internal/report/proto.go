package report

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto converts the event into a protobuf Struct for binary replay frames.
func (e Event) ToProto() (*structpb.Struct, error) {
	//1.- Build plain maps first so structpb can validate every value type.
	args := make([]any, 0, len(e.Args))
	for _, arg := range e.Args {
		entry := map[string]any{"kind": string(arg.Kind)}
		if arg.Kind == ArgNumber {
			entry["number"] = arg.Number
		} else {
			entry["text"] = arg.Text
		}
		args = append(args, entry)
	}
	msg, err := structpb.NewStruct(map[string]any{
		"code":       e.Code,
		"indent":     e.Indent,
		"no_newline": e.NoNewline,
		"args":       args,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event %d: %w", e.Code, err)
	}
	return msg, nil
}

// EventFromProto reverses ToProto.
func EventFromProto(msg *structpb.Struct) (Event, error) {
	if msg == nil {
		return Event{}, fmt.Errorf("decode event: nil message")
	}
	fields := msg.GetFields()
	ev := Event{
		Code:      int(fields["code"].GetNumberValue()),
		Indent:    int(fields["indent"].GetNumberValue()),
		NoNewline: fields["no_newline"].GetBoolValue(),
	}
	for _, value := range fields["args"].GetListValue().GetValues() {
		entry := value.GetStructValue().GetFields()
		kind := ArgKind(entry["kind"].GetStringValue())
		switch kind {
		case ArgNumber:
			ev.Args = append(ev.Args, Arg{Kind: kind, Number: int(entry["number"].GetNumberValue())})
		case ArgText, ArgReport:
			ev.Args = append(ev.Args, Arg{Kind: kind, Text: entry["text"].GetStringValue()})
		default:
			return Event{}, fmt.Errorf("decode event %d: unknown argument kind %q", ev.Code, kind)
		}
	}
	return ev, nil
}
