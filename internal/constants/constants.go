package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixCounters = "counters:"
)

const (
	DefaultInputTopic  = "import_requests"
	DefaultOutputTopic = "import_results"
)

const (
	DefaultMongoDBName          = "cablesync"
	VocabularyCollection        = "status_vocabularies"
	DefaultMongoTimeout         = 10 * time.Second
	DefaultMongoConnectDeadline = 30 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultTTLSeconds = 3600
)

const (
	DefaultSnapshotWriteChunk   = 1000
	DefaultSnapshotReadPage     = 5000
	DefaultEventWriteChunk      = 1000
	DefaultProjectionWriteChunk = 1000
	DefaultMaxSourceBytes       = 32 << 20
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Import run phases, in execution order.
const (
	PhaseInput            = "input"
	PhaseNormalize        = "normalize"
	PhaseCreateImport     = "create_import"
	PhaseWriteSnapshot    = "write_snapshot"
	PhaseReadPrevious     = "read_previous"
	PhaseClassify         = "classify"
	PhaseWriteEvents      = "write_events"
	PhaseUpdateProjection = "update_projection"
	PhaseAdvancePointer   = "advance_pointer"
	PhaseWriteSummary     = "write_summary"
)

const (
	ServiceNameSync   = "sync-service"
	ServiceNameWorker = "sync-worker"
)
