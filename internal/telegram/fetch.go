package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
)

// FetchFile downloads a Telegram file by id, streaming its body.
// Implements the persistence gateway's FileFetcher.
func (b *Bot) FetchFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	file, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, 0, fmt.Errorf("get file: %w", err)
	}

	link := b.api.FileDownloadLink(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download status: %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}
