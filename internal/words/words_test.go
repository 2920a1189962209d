package words

import (
	"regexp"
	"testing"
)

func TestMailboxNameShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)
	seen := make(map[string]bool)

	for range 100 {
		name := MailboxName()
		if !pattern.MatchString(name) {
			t.Fatalf("MailboxName() = %q, want adjective.adjective.noun", name)
		}
		seen[name] = true
	}

	if len(seen) < 2 {
		t.Errorf("expected varied names, got %d distinct out of 100", len(seen))
	}
}
