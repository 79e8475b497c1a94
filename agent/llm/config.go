package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanakach/callcenter/agent/contract"
	openrouterx "github.com/tanakach/callcenter/pkg/openrouter"
)

// Config selects the chat model per agent kind. The default model applies
// everywhere unless a per-agent override is set.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel      string `envconfig:"TRIAGE_MODEL" split_words:"true"`
	ProductInfoModel string `envconfig:"PRODUCT_INFO_MODEL" split_words:"true"`
	OrderModel       string `envconfig:"ORDER_MODEL" split_words:"true"`
	TroubleModel     string `envconfig:"TROUBLE_MODEL" split_words:"true"`
	GuardrailModel   string `envconfig:"GUARDRAIL_MODEL" split_words:"true"`

	GuardrailTemperature float32 `envconfig:"GUARDRAIL_TEMPERATURE" split_words:"true" default:"0"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(kind contractx.AgentKind) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)

	switch kind {
	case contractx.AgentTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
	case contractx.AgentProductInfo:
		if v := strings.TrimSpace(c.ProductInfoModel); v != "" {
			modelName = v
		}
	case contractx.AgentOrder:
		if v := strings.TrimSpace(c.OrderModel); v != "" {
			modelName = v
		}
	case contractx.AgentTrouble:
		if v := strings.TrimSpace(c.TroubleModel); v != "" {
			modelName = v
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// OpenRouterForGuardrail returns the classifier model config; it runs cold
// by default.
func (c Config) OpenRouterForGuardrail() openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.GuardrailModel); v != "" {
		modelName = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.GuardrailTemperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
