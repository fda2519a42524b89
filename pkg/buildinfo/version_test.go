package buildinfo

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := Version
	Version = "v1.2.3"
	defer func() { Version = saved }()

	if got := Get(); got.Version != "v1.2.3" || got.Commit != Commit {
		t.Errorf("Get() = %+v", got)
	}
	if !strings.HasPrefix(String(), "version: v1.2.3\n") {
		t.Errorf("String() = %q", String())
	}
	if !strings.Contains(Template(), "{{.Name}} version v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
}
