// Package exitcodes contains the process exit codes of the cdpdriver CLI.
package exitcodes

// ExitCode is just a type representing a process exit code for cdpdriver.
type ExitCode uint8

// list of exit codes used by cdpdriver
const (
	GenericError      ExitCode = 1
	InvalidConfig     ExitCode = 104
	ExternalAbort     ExitCode = 105
	LaunchFailed      ExitCode = 110
	TransportClosed   ExitCode = 111
	RemoteCallFailed  ExitCode = 112
	OperationTimedOut ExitCode = 113
	TargetNotFound    ExitCode = 114
)
