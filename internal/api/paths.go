package api

// GJSON paths for values read from the chat API.
const (
	// Error responses carry {"detail": "..."} or, for validation errors,
	// {"detail": [{"msg": "..."}]}
	PathDetail         = "detail"
	PathDetailFirstMsg = "detail.0.msg"

	PathChats  = "chats"
	PathModels = "models"

	// Non-streaming send response
	PathContent = "content"

	// Transcript line shapes
	PathInfo          = "info"
	PathInfoID        = "info.id"
	PathInfoName      = "info.name"
	PathInfoCreatedAt = "info.created_at"
	PathTurn          = "chats"
	PathTurnMessages  = "chats.messages"
	PathTurnCreatedAt = "chats.created_at"
	PathLineType      = "type"
	PathLineRole      = "role"
	PathLineContent   = "content"

	// Chunk frames, tried in order when a stream read is a JSON object
	PathFrameContent = "content"
	PathFrameDelta   = "delta"
	PathFrameText    = "text"
	PathFrameChoice  = "choices.0.delta.content"
)

// framePaths lists the chunk frame paths in lookup order
var framePaths = []string{PathFrameContent, PathFrameDelta, PathFrameText, PathFrameChoice}
