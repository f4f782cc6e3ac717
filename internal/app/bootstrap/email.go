package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/advisor-match/internal/config"
	"github.com/wolfman30/advisor-match/internal/notify"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// BuildEmailSender selects the provider named by EMAIL_PROVIDER.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case appconfig.EmailProviderSendGrid:
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	case appconfig.EmailProviderSES:
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.EmailFromAddress,
			FromName:         cfg.EmailFromName,
			ConfigurationSet: cfg.SESConfigSet,
		}, logger), nil
	case appconfig.EmailProviderStub, "":
		logger.Info("email delivery stubbed")
		return notify.NewStubEmailSender(logger), nil
	}
	return nil, fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
}
