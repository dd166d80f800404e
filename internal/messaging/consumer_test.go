package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"vidstory-server/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClipResultProcessor_SuccessSavesTrimmedURL(t *testing.T) {
	sceneRepo := new(mocks.SceneRepository)
	processor := NewClipResultProcessor(sceneRepo, nil)

	sceneID := uuid.New()
	payload := ClipResultPayload{
		TaskID:          uuid.NewString(),
		SceneID:         sceneID.String(),
		Status:          ClipResultStatusSuccess,
		TrimmedVideoURL: "https://cdn.example.com/trimmed.mp4",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	sceneRepo.On("SetTrimmedVideoURL", mock.Anything, mock.Anything, sceneID, payload.TrimmedVideoURL).Return(nil)

	err = processor.Process(context.Background(), body)
	assert.NoError(t, err)
	sceneRepo.AssertExpectations(t)
}

func TestClipResultProcessor_SuccessWithoutURLFails(t *testing.T) {
	sceneRepo := new(mocks.SceneRepository)
	processor := NewClipResultProcessor(sceneRepo, nil)

	payload := ClipResultPayload{
		TaskID:  uuid.NewString(),
		SceneID: uuid.NewString(),
		Status:  ClipResultStatusSuccess,
	}
	body, _ := json.Marshal(payload)

	err := processor.Process(context.Background(), body)
	assert.Error(t, err)
	sceneRepo.AssertNotCalled(t, "SetTrimmedVideoURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClipResultProcessor_ErrorStatusLeavesSceneUntouched(t *testing.T) {
	sceneRepo := new(mocks.SceneRepository)
	processor := NewClipResultProcessor(sceneRepo, nil)

	payload := ClipResultPayload{
		TaskID:       uuid.NewString(),
		SceneID:      uuid.NewString(),
		Status:       ClipResultStatusError,
		ErrorDetails: "ffmpeg exited with code 1",
	}
	body, _ := json.Marshal(payload)

	err := processor.Process(context.Background(), body)
	assert.NoError(t, err)
	sceneRepo.AssertNotCalled(t, "SetTrimmedVideoURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClipResultProcessor_InvalidJSON(t *testing.T) {
	processor := NewClipResultProcessor(new(mocks.SceneRepository), nil)

	err := processor.Process(context.Background(), []byte("{not json"))
	assert.Error(t, err)
}

func TestClipResultProcessor_InvalidSceneID(t *testing.T) {
	processor := NewClipResultProcessor(new(mocks.SceneRepository), nil)

	payload := ClipResultPayload{
		TaskID:  uuid.NewString(),
		SceneID: "not-a-uuid",
		Status:  ClipResultStatusSuccess,
	}
	body, _ := json.Marshal(payload)

	err := processor.Process(context.Background(), body)
	assert.Error(t, err)
}

func TestClipResultProcessor_UnknownStatus(t *testing.T) {
	processor := NewClipResultProcessor(new(mocks.SceneRepository), nil)

	payload := ClipResultPayload{
		TaskID:  uuid.NewString(),
		SceneID: uuid.NewString(),
		Status:  "maybe",
	}
	body, _ := json.Marshal(payload)

	err := processor.Process(context.Background(), body)
	assert.Error(t, err)
}
