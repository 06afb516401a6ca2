// Package realtime builds the JSON events exchanged with the OpenAI Realtime
// API over its websocket connection.
package realtime

import (
	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/internal/prompts"
)

// Event is a conversation event payload bound for the model connection.
type Event map[string]interface{}

// Tool names registered with the model.
const (
	ToolNameQuestionAnswer = "question_and_answer"
	ToolNameBookMeeting    = "book_meeting"
)

// SessionUpdate builds the one-time session configuration event: codec,
// voice, persona instructions, tool schemas and tool-choice mode.
func SessionUpdate(voice, instructions string) Event {
	return Event{
		"type": "session.update",
		"session": map[string]interface{}{
			"turn_detection":      map[string]interface{}{"type": "server_vad"},
			"input_audio_format":  config.DefaultAudioCodec,
			"output_audio_format": config.DefaultAudioCodec,
			"voice":               voice,
			"instructions":        instructions,
			"modalities":          []string{"text", "audio"},
			"temperature":         config.DefaultTemperature,
			"input_audio_transcription": map[string]interface{}{
				"model": config.DefaultTranscriptionModel,
			},
			"tools":       ToolSchemas(),
			"tool_choice": "auto",
		},
	}
}

// ToolSchemas returns the function schemas exposed to the model.
func ToolSchemas() []interface{} {
	return []interface{}{
		map[string]interface{}{
			"type":        "function",
			"name":        ToolNameQuestionAnswer,
			"description": prompts.QuestionToolDescription,
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"question": map[string]interface{}{"type": "string"},
				},
				"required": []string{"question"},
			},
		},
		map[string]interface{}{
			"type":        "function",
			"name":        ToolNameBookMeeting,
			"description": prompts.BookingToolDescription,
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"address": map[string]interface{}{"type": "string"},
				},
				"required": []string{"address"},
			},
		},
	}
}

// UserItem builds a user-authored conversation item.
func UserItem(text string) Event {
	return Event{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type": "message",
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "input_text", "text": text},
			},
		},
	}
}

// FunctionOutput builds a system-authored function result item.
func FunctionOutput(output string) Event {
	return Event{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type":   "function_call_output",
			"role":   "system",
			"output": output,
		},
	}
}

// ResponseCreate requests a new model-generated response.
func ResponseCreate() Event {
	return Event{"type": "response.create"}
}

// ResponseWithInstructions requests a spoken response guided by transient
// instructions, e.g. phrasing a tool result naturally.
func ResponseWithInstructions(instructions string) Event {
	return Event{
		"type": "response.create",
		"response": map[string]interface{}{
			"modalities":   []string{"text", "audio"},
			"instructions": instructions,
		},
	}
}

// AudioAppend forwards one inbound telephony audio frame to the model.
func AudioAppend(payload string) Event {
	return Event{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	}
}
