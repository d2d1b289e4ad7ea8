package config

// WorkerKeyStruct names the Redis lists the usage worker reads and writes.
type WorkerKeyStruct struct {
	// PersistUsageQueue holds generated exams waiting for the bulk insert.
	PersistUsageQueue string
	// UsageDeadLetter keeps payloads that can never be persisted so they can
	// be inspected instead of silently dropped.
	UsageDeadLetter string
}

var WorkerKey = &WorkerKeyStruct{
	PersistUsageQueue: "qbank:usage:queue",
	UsageDeadLetter:   "qbank:usage:dead",
}
