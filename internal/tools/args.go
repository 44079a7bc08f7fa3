package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// number is a float64 that also accepts quoted numerics. Models
// sometimes emit "300" where the schema says 300; duration and wait
// parameters coerce those instead of rejecting the call.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("cannot parse %q as a number", s)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// Argument records, one per tool that takes any. Pointer fields mark
// arguments where an explicit empty value is valid but omission is not.
type (
	tapArgs struct {
		Cell string `json:"cell"`
	}

	tapSequenceArgs struct {
		Cells   []string `json:"cells"`
		DelayMS float64  `json:"delay_ms"`
	}

	swipeArgs struct {
		StartCell  string `json:"start_cell"`
		EndCell    string `json:"end_cell"`
		DurationMS number `json:"duration_ms"`
	}

	inputTextArgs struct {
		Text *string `json:"text"`
	}

	launchAppArgs struct {
		Package string `json:"package"`
	}

	waitArgs struct {
		Seconds *number `json:"seconds"`
	}

	taskCompleteArgs struct {
		Summary *string `json:"summary"`
	}

	taskImpossibleArgs struct {
		Reason *string `json:"reason"`
	}
)

// decodeArgs unmarshals a normalized argument payload into a typed
// record. This is the single boundary where argument shapes are
// checked; handlers past this point work with typed fields only.
func decodeArgs(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func missingArg(name string) error {
	return fmt.Errorf("missing required argument %q", name)
}
