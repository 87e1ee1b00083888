package block

const (
	// BlockSize is the target size for a finished block. Callers
	// watch CurrentSizeEstimate against a threshold like this one to
	// decide when to cut a block; the builder itself enforces no
	// limit.
	BlockSize = 16 * 1024

	// RestartInterval is the default number of entries per restart
	// group.
	RestartInterval = 16

	// trailerFieldSize is the fixed width of each restart offset and
	// of the trailing restart count.
	trailerFieldSize = 4
)
