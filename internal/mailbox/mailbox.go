// Package mailbox talks to the inbox that receives forwarded links.
package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"morsel/internal/model"
	"morsel/internal/retry"
)

// Mailbox is bound to a single inbox at construction.
type Mailbox interface {
	List(ctx context.Context, limit int) ([]model.MessageSummary, error)
	Get(ctx context.Context, id string) (model.Message, error)
	AddLabels(ctx context.Context, id string, labels ...string) error
}

// Inbox describes one inbox on the account.
type Inbox struct {
	ID          string    `json:"inbox_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AgentMail is a Mailbox over the AgentMail REST API.
type AgentMail struct {
	baseURL    string
	apiKey     string
	inbox      string
	httpClient *http.Client
	policy     retry.Policy
}

var _ Mailbox = (*AgentMail)(nil)

func NewAgentMail(baseURL, apiKey, inbox string, policy retry.Policy) *AgentMail {
	return &AgentMail{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		inbox:      inbox,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     policy,
	}
}

type listResponse struct {
	Count    int `json:"count"`
	Messages []struct {
		MessageID string   `json:"message_id"`
		Subject   string   `json:"subject"`
		Labels    []string `json:"labels"`
	} `json:"messages"`
}

type messageResponse struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
}

type inboxesResponse struct {
	Count   int     `json:"count"`
	Inboxes []Inbox `json:"inboxes"`
}

func (a *AgentMail) List(ctx context.Context, limit int) ([]model.MessageSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp listResponse
	if err := a.do(ctx, http.MethodGet, a.messagesPath()+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]model.MessageSummary, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, model.MessageSummary{ID: m.MessageID, Subject: m.Subject, Labels: m.Labels})
	}
	return out, nil
}

func (a *AgentMail) Get(ctx context.Context, id string) (model.Message, error) {
	var resp messageResponse
	if err := a.do(ctx, http.MethodGet, a.messagesPath()+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return model.Message{}, fmt.Errorf("get message: %w", err)
	}
	return model.Message{ID: id, Text: resp.Text, HTML: resp.HTML}, nil
}

func (a *AgentMail) AddLabels(ctx context.Context, id string, labels ...string) error {
	body := map[string][]string{"add_labels": labels}
	if err := a.do(ctx, http.MethodPatch, a.messagesPath()+"/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("label message: %w", err)
	}
	return nil
}

// Inboxes lists every inbox visible to the API key.
func (a *AgentMail) Inboxes(ctx context.Context) ([]Inbox, error) {
	var resp inboxesResponse
	if err := a.do(ctx, http.MethodGet, "/inboxes", nil, &resp); err != nil {
		return nil, fmt.Errorf("list inboxes: %w", err)
	}
	return resp.Inboxes, nil
}

func (a *AgentMail) messagesPath() string {
	return "/inboxes/" + url.PathEscape(a.inbox) + "/messages"
}

func (a *AgentMail) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	return a.policy.Do(ctx, method+" "+strings.SplitN(path, "?", 2)[0], func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return retry.NewHTTPError("agentmail", resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
