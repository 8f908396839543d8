package app

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", nil, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"cleanup", []string{"cleanup"}, CommandCleanup},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"schema-version", []string{"schema-version"}, CommandSchemaVersion},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"余分な引数は無視する", []string{"cleanup", "--dry-run"}, CommandCleanup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%v) error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownIsRejected(t *testing.T) {
	_, err := ParseCommand([]string{"fanout"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `"fanout"`) || !strings.Contains(err.Error(), "schema-version") {
		t.Errorf("error should name the command and list usage: %v", err)
	}
}

func TestCommand_NeedsDatabase(t *testing.T) {
	for _, c := range commands {
		want := c.cmd != CommandHealthcheck
		if got := c.cmd.NeedsDatabase(); got != want {
			t.Errorf("%s.NeedsDatabase() = %v, want %v", c.cmd, got, want)
		}
	}
}

func TestUsage_ListsEveryCommand(t *testing.T) {
	usage := Usage()
	for _, c := range commands {
		if !strings.Contains(usage, string(c.cmd)) || !strings.Contains(usage, c.desc) {
			t.Errorf("usage missing %s:\n%s", c.cmd, usage)
		}
	}
	if strings.Index(usage, "serve") > strings.Index(usage, "healthcheck") {
		t.Errorf("usage order changed:\n%s", usage)
	}
}
