package platform

import "testing"

func TestMergeEnvExtraEnvWins(t *testing.T) {
	base := map[string]string{"FOO": "base", "BAR": "base"}
	extra := map[string]string{"FOO": "override"}

	got := MergeEnv(base, extra)
	values := map[string]string{}
	for _, kv := range got {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				values[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	if values["FOO"] != "override" {
		t.Fatalf("extraEnv should win over env, got FOO=%q", values["FOO"])
	}
	if values["BAR"] != "base" {
		t.Fatalf("expected BAR to survive from base env, got %q", values["BAR"])
	}
}

func TestConvertPathVariableFallsBackOnError(t *testing.T) {
	// cygpath will not exist on the test host; ConvertPathVariable must
	// return the input unchanged rather than erroring.
	got := ConvertPathVariable("C:\\some\\path")
	if got != "C:\\some\\path" {
		t.Fatalf("expected unchanged fallback, got %q", got)
	}
}
