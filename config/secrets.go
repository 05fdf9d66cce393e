package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Key returns the completions API key. In prod it is read from SSM
// Parameter Store under APIKeyParam; elsewhere it comes from config or env.
func (c *OpenAIConfig) Key(env string) string {
	if env == "prod" && c.APIKeyParam != "" {
		if v := getParameterStoreValue(c.APIKeyParam, true); v != "" {
			return v
		}
	}
	return c.APIKey
}

// getParameterStoreValue returns "" on any failure; callers fall back to
// their configured values.
func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
