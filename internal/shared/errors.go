package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Sync errors
	ErrSyncInProgress    = fmt.Errorf("sync already in progress")
	ErrRemoteUnreachable = fmt.Errorf("media server unreachable")
	ErrBatchTimeout      = fmt.Errorf("batch fetch timed out")
	ErrStoreWrite        = fmt.Errorf("cache write failed")

	// Generation errors
	ErrCacheEmpty     = fmt.Errorf("library cache is empty")
	ErrNoMatches      = fmt.Errorf("no tracks match the selected filters")
	ErrLLMRequest     = fmt.Errorf("LLM request failed")
	ErrBadLLMResponse = fmt.Errorf("LLM returned an unparseable response")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
