package config

type WorkerKeyStruct struct {
	// PersistViolationsQueue is the Redis list drained by the violation worker.
	PersistViolationsQueue string
}

func NewWorkerKeyStruct() *WorkerKeyStruct {
	return &WorkerKeyStruct{
		PersistViolationsQueue: "persist_violations_queue",
	}
}

var WorkerKey = NewWorkerKeyStruct()
