package lifecycle

// exitKillDuringLoad and exitKillDuringInference mirror the original
// control process's kill-file exit codes: 1024 when an active item was
// still preparing (loading) and 1025 when one was already inferring.
const (
	exitKillDuringLoad      = 1024
	exitKillDuringInference = 1025
)
