package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "execute", Stage("execute")},
		{"Unit", KeyUnit, ":impl", Unit(":impl")},
		{"Operation", KeyOperation, ":impl:build", Operation(":impl:build")},
		{"Address", KeyAddress, "core:build", Address("core:build")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Source", KeySource, "/a", Source("/a")},
		{"Target", KeyTarget, "/b", Target("/b")},
		{"Group", KeyGroup, "io.example", Group("io.example")},
		{"Version", KeyVersion, "1.2.3", Version("1.2.3")},
		{"Name", KeyName, "mavenRoot", Name("mavenRoot")},
		{"URL", KeyURL, "file:///x", URL("file:///x")},
		{"Output", KeyOutput, "ok", Output("ok")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("unexpected count attr %v", a)
	}
	if a := Attempt(2); a.Key != KeyAttempt || a.Value.Int64() != 2 {
		t.Fatalf("unexpected attempt attr %v", a)
	}
	if a := Files(7); a.Key != KeyFiles || a.Value.Int64() != 7 {
		t.Fatalf("unexpected files attr %v", a)
	}
	if a := DurationMS(1.5); a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("expected empty error value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("expected boom, got %q", a.Value.String())
	}
}
