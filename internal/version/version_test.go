package version

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestHelperProcess isn't a real test. It's used to mock exec.Command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) < 3 || args[0] != "git" || args[1] != "describe" {
		os.Exit(0)
	}

	switch args[2] {
	case "--always":
		if os.Getenv("MOCK_GIT_COMMIT_FAIL") == "1" {
			os.Exit(1)
		}
		os.Stdout.WriteString("mock-commit-hash")
	case "--tags":
		if os.Getenv("MOCK_GIT_VERSION_FAIL") == "1" {
			os.Exit(1)
		}
		if os.Getenv("MOCK_GIT_VERSION_EMPTY") != "1" {
			os.Stdout.WriteString("v1.0.0")
		}
	}
}

func mockExecCommand(command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	for _, key := range []string{"MOCK_GIT_COMMIT_FAIL", "MOCK_GIT_VERSION_FAIL", "MOCK_GIT_VERSION_EMPTY"} {
		if val := os.Getenv(key); val != "" {
			cmd.Env = append(cmd.Env, key+"="+val)
		}
	}
	return cmd
}

func TestInfo(t *testing.T) {
	origExecCommand := execCommand
	defer func() {
		execCommand = origExecCommand
		Reset()
	}()
	execCommand = mockExecCommand

	tests := []struct {
		name           string
		mockCommitFail string
		mockVerFail    string
		mockVerEmpty   string
		expectedVer    string
		expectedCommit string
	}{
		{
			name:           "Success",
			expectedVer:    "1.0.0",
			expectedCommit: "mock-commit-hash",
		},
		{
			name:           "CommitFail",
			mockCommitFail: "1",
			expectedVer:    "1.0.0",
			expectedCommit: "unknown",
		},
		{
			name:           "VersionFail",
			mockVerFail:    "1",
			expectedVer:    "dev",
			expectedCommit: "mock-commit-hash",
		},
		{
			name:           "VersionEmpty",
			mockVerEmpty:   "1",
			expectedVer:    "dev",
			expectedCommit: "mock-commit-hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()

			if tt.mockCommitFail != "" {
				t.Setenv("MOCK_GIT_COMMIT_FAIL", tt.mockCommitFail)
			}
			if tt.mockVerFail != "" {
				t.Setenv("MOCK_GIT_VERSION_FAIL", tt.mockVerFail)
			}
			if tt.mockVerEmpty != "" {
				t.Setenv("MOCK_GIT_VERSION_EMPTY", tt.mockVerEmpty)
			}

			if got := GetVersion(); got != tt.expectedVer {
				t.Errorf("GetVersion() = %v, want %v", got, tt.expectedVer)
			}
			if got := GetCommit(); got != tt.expectedCommit {
				t.Errorf("GetCommit() = %v, want %v", got, tt.expectedCommit)
			}

			info := Info()
			if !strings.Contains(info, "outfit-studio") {
				t.Errorf("Info() should name the binary, got %q", info)
			}
		})
	}
}

func TestGetDate(t *testing.T) {
	Reset()
	defer Reset()
	if GetDate() == "" {
		t.Error("GetDate() returned empty string")
	}
}
