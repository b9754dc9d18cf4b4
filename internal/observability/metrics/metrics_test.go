package metrics

import "testing"

func TestCloneTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := CloneTags(original)
	if cloned == nil {
		t.Fatal("CloneTags returned nil map")
	}

	cloned["env"] = "stage"
	if original["env"] != "prod" {
		t.Fatal("CloneTags did not copy values")
	}

	if _, ok := cloned[""]; ok {
		t.Fatal("CloneTags kept empty key")
	}
}

func TestCloneTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := CloneTags(nil); got != nil {
		t.Fatalf("CloneTags(nil) = %v, want nil", got)
	}
}
