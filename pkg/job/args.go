package job

import "encoding/json"

// TaskKind is the River job kind shared by every courier task.
const TaskKind = "courier:task"

// taskArgs wraps a registered task name and its JSON payload.
type taskArgs struct {
	TaskName string          `json:"task_name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string {
	return TaskKind
}

func taskName(encoded []byte) string {
	var args taskArgs
	if err := json.Unmarshal(encoded, &args); err != nil {
		return ""
	}
	return args.TaskName
}
