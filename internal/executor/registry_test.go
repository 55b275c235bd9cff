package executor

import "testing"

func TestDefaultDescriptorsCoverBothExecutors(t *testing.T) {
	descriptors := DefaultDescriptors()

	byName := make(map[string][]string, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			t.Error("descriptor with empty Name")
		}
		if d.Description == "" {
			t.Errorf("descriptor %q has empty Description", d.Name)
		}
		byName[d.Name] = d.ToolNames
	}

	general, ok := byName["general"]
	if !ok {
		t.Fatal("expected a \"general\" descriptor")
	}
	for _, want := range []string{"bash", "glob", "grep", "read", "codegraph"} {
		found := false
		for _, tn := range general {
			if tn == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("general descriptor missing tool %q, got %v", want, general)
		}
	}

	math, ok := byName["math"]
	if !ok {
		t.Fatal("expected a \"math\" descriptor")
	}
	if len(math) != 1 || math[0] != "calculator" {
		t.Errorf("math descriptor ToolNames = %v, want [calculator]", math)
	}
}
