package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args defaults to serve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"help", []string{"help"}, CommandHelp},
		{"dash h", []string{"-h"}, CommandHelp},
		{"double dash help", []string{"--help"}, CommandHelp},
		{"case insensitive", []string{" Worker "}, CommandWorker},
		{"unknown defaults to serve", []string{"unknown"}, CommandServe},
		{"extra args ignored", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestUsage_ListsEveryCommand(t *testing.T) {
	usage := Usage()
	for _, c := range []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck, CommandHelp} {
		if !strings.Contains(usage, string(c)) {
			t.Errorf("Usage() missing %q:\n%s", c, usage)
		}
	}
}

func TestRun_Help_PrintsUsageWithoutConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"help"}); err != nil {
		t.Fatalf("Run(help) error = %v", err)
	}
	if !strings.Contains(buf.String(), "usage: launchwatch") {
		t.Errorf("expected usage output, got %q", buf.String())
	}
}
