package send

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/crabbro/crabbot/internal/domain"
)

// vkAPIVersion is the VK API version all calls are pinned to.
const vkAPIVersion = "5.131"

// VKClient is a minimal VK API client covering the methods the bot needs:
// messages.send, messages.setActivity, and the two-step photo upload.
type VKClient struct {
	Token   string
	BaseURL string // defaults to https://api.vk.com/method; overridable in tests

	// HTTP serves API calls; Upload serves the photo POST, which moves more
	// bytes and gets a longer timeout.
	HTTP   *http.Client
	Upload *http.Client
}

// NewVKClient constructs a VKClient with conservative timeouts.
func NewVKClient(token string) *VKClient {
	return &VKClient{
		Token:   token,
		BaseURL: "https://api.vk.com/method",
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Upload:  &http.Client{Timeout: 30 * time.Second},
	}
}

// vkEnvelope is the generic VK API response wrapper.
type vkEnvelope struct {
	Response json.RawMessage `json:"response"`
	Error    *vkError        `json:"error"`
}

type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *vkError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// call POSTs a form-encoded VK API method and returns the raw response field.
func (c *VKClient) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	params.Set("access_token", c.Token)
	params.Set("v", vkAPIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env vkEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", method, err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, env.Error)
	}
	return env.Response, nil
}

// SendMessage sends a text message, optionally with an attachment string.
// randomID is VK's client-side idempotency token: the platform collapses
// repeated sends carrying the same random_id into one visible message.
func (c *VKClient) SendMessage(ctx context.Context, peerID int64, text, attachment string, randomID int64) error {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	params.Set("message", text)
	params.Set("random_id", strconv.FormatInt(randomID, 10))
	if attachment != "" {
		params.Set("attachment", attachment)
	}
	_, err := c.call(ctx, "messages.send", params)
	return err
}

// SetTyping shows the "typing..." activity in the chat.
func (c *VKClient) SetTyping(ctx context.Context, peerID int64) error {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	params.Set("type", "typing")
	_, err := c.call(ctx, "messages.setActivity", params)
	return err
}

// UploadPhoto uploads a local image for the peer and returns the attachment
// string ("photo{owner}_{id}") usable with messages.send.
func (c *VKClient) UploadPhoto(ctx context.Context, peerID int64, path string) (string, error) {
	// 1) obtain an upload server
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	raw, err := c.call(ctx, "photos.getMessagesUploadServer", params)
	if err != nil {
		return "", err
	}
	var server struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(raw, &server); err != nil || server.UploadURL == "" {
		return "", fmt.Errorf("photos.getMessagesUploadServer: no upload_url")
	}

	// 2) multipart POST of the file
	up, err := c.postPhoto(ctx, server.UploadURL, path)
	if err != nil {
		return "", err
	}

	// 3) save the uploaded photo
	params = url.Values{}
	params.Set("photo", up.Photo)
	params.Set("server", strconv.Itoa(up.Server))
	params.Set("hash", up.Hash)
	raw, err = c.call(ctx, "photos.saveMessagesPhoto", params)
	if err != nil {
		return "", err
	}
	var saved []struct {
		ID      int64 `json:"id"`
		OwnerID int64 `json:"owner_id"`
	}
	if err := json.Unmarshal(raw, &saved); err != nil || len(saved) == 0 {
		return "", fmt.Errorf("photos.saveMessagesPhoto: empty response")
	}
	return fmt.Sprintf("photo%d_%d", saved[0].OwnerID, saved[0].ID), nil
}

type vkUploadResult struct {
	Photo  string `json:"photo"`
	Server int    `json:"server"`
	Hash   string `json:"hash"`
}

// postPhoto streams the local file to the upload server.
func (c *VKClient) postPhoto(ctx context.Context, uploadURL, path string) (*vkUploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body strings.Builder
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.Upload.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var up vkUploadResult
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return nil, fmt.Errorf("photo upload: decode: %w", err)
	}
	if up.Photo == "" {
		return nil, fmt.Errorf("photo upload: empty photo field")
	}
	return &up, nil
}

// VKSender delivers actions through the VK Callback API group.
type VKSender struct {
	Client *VKClient
	Typing Typing
	Log    zerolog.Logger
}

// Deliver sends actions to the peer strictly in order. One typing indicator
// plus randomized pause precedes the first action; indicator failure is
// logged and ignored. A failed photo upload falls back to sending the
// caption as text under a freshly derived token. A failure on one action
// does not stop the remaining ones.
func (s *VKSender) Deliver(ctx context.Context, chatID int64, actions []domain.Action, seed string) {
	if len(actions) == 0 {
		return
	}

	if err := s.Client.SetTyping(ctx, chatID); err != nil {
		s.Log.Debug().Err(err).Int64("peer_id", chatID).Msg("vk: typing indicator failed")
	}
	s.Typing.Pause()

	for i, a := range actions {
		token := s.token(seed, i)
		switch a.Kind {
		case domain.ActionText:
			if err := s.Client.SendMessage(ctx, chatID, a.Body, "", token); err != nil {
				s.Log.Error().Err(err).Int64("peer_id", chatID).Msg("vk: send text failed")
			}
		case domain.ActionPhoto:
			attachment, err := s.Client.UploadPhoto(ctx, chatID, a.Path)
			if err == nil {
				err = s.Client.SendMessage(ctx, chatID, a.Caption, attachment, token)
			}
			if err != nil {
				s.Log.Warn().Err(err).Int64("peer_id", chatID).Str("path", a.Path).Msg("vk: photo failed, falling back to caption")
				if a.Caption != "" {
					if err := s.Client.SendMessage(ctx, chatID, a.Caption, "", s.fallbackToken(seed, i)); err != nil {
						s.Log.Error().Err(err).Int64("peer_id", chatID).Msg("vk: caption fallback failed")
					}
				}
			}
		}
	}
}

func (s *VKSender) token(seed string, index int) int64 {
	if seed == "" {
		return RandomToken()
	}
	return DeriveToken(seed, index)
}

// fallbackToken derives a token distinct from the primary one so the platform
// does not collapse the fallback text with the failed photo send.
func (s *VKSender) fallbackToken(seed string, index int) int64 {
	if seed == "" {
		return RandomToken()
	}
	return DeriveToken(seed+"#fallback", index)
}
