// Package queue defines the asynq tasks shared by the API and the worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ParseDocumentTask is scheduled for each stored resume when processing
	// runs in queue mode.
	ParseDocumentTask = "document:parse"

	maxRetry = 5
)

// ParsePayload tells the worker which stored file to parse. FilePath is the
// local path under the upload root; ObjectKey, when set, is the raw mirror
// in object storage used if the worker cannot see the local file.
type ParsePayload struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	FilePath   string `json:"file_path"`
	ObjectKey  string `json:"object_key,omitempty"`
	RemovePII  bool   `json:"remove_pii"`
}

// NewParseTask builds the task for payload.
func NewParseTask(payload ParsePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ParseDocumentTask, data, asynq.MaxRetry(maxRetry)), nil
}

// DecodeParsePayload reads the payload of a parse task.
func DecodeParsePayload(task *asynq.Task) (ParsePayload, error) {
	var payload ParsePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ParsePayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.DocumentID == "" || payload.FilePath == "" {
		return ParsePayload{}, fmt.Errorf("decode payload: document_id and file_path are required")
	}
	return payload, nil
}

// Client enqueues parse tasks.
type Client struct {
	client *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// EnqueueParse enqueues a document parse job.
func (c *Client) EnqueueParse(ctx context.Context, payload ParsePayload) error {
	task, err := NewParseTask(payload)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue parse task: %w", err)
	}
	return nil
}
