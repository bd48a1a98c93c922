package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/config"
)

// FromConfig builds every configured transport. With none configured the result logs
// notifications instead. The returned close func shuts down opened topics.
func FromConfig(ctx context.Context, cfg config.Notify, log *zap.Logger) (Multi, func(context.Context) error, error) {
	var out Multi
	closeFn := func(context.Context) error { return nil }

	if t := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID); t != nil {
		out = append(out, t)
	}
	if s := NewSlack(cfg.SlackWebhook); s != nil {
		out = append(out, s)
	}
	if w := NewWebhook(cfg.WebhookURL, cfg.WebhookSecret); w != nil {
		out = append(out, w)
	}
	if m := NewMail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTo); m != nil {
		out = append(out, m)
	}
	if cfg.TopicURL != "" {
		t, err := OpenTopic(ctx, cfg.TopicURL)
		if err != nil {
			return nil, closeFn, err
		}
		out = append(out, t)
		closeFn = t.Close
	}

	if len(out) == 0 {
		log.Warn("no_notifier_configured")
		out = append(out, Log{Logger: log})
	}
	return out, closeFn, nil
}
