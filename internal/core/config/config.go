package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// StatusSource values select which signal drives the derived order status.
const (
	// StatusSourceMetafield derives the display stage from the staff-set
	// fulfillment_stage metafield.
	StatusSourceMetafield = "metafield"
	// StatusSourcePlatform derives the display stage from Shopify's native
	// fulfillment status and tags.
	StatusSourcePlatform = "platform"
)

// SlipStorage values select how uploaded payment slips are persisted.
const (
	// SlipStorageInline stores the slip as a base64 JSON blob in the
	// payment_slip metafield.
	SlipStorageInline = "inline"
	// SlipStorageReference uploads the slip to Shopify Files via a staged
	// upload and stores only the file reference.
	SlipStorageReference = "reference"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Shopify holds the Shopify Admin API configuration.
	Shopify ShopifyConfig `mapstructure:",squash"`

	// Policy holds the strategy selections for status derivation and slip storage.
	Policy PolicyConfig `mapstructure:",squash"`

	// Upload holds the payment-slip upload constraints.
	Upload UploadConfig `mapstructure:",squash"`
}

// ShopifyConfig holds the credentials for the Shopify store.
type ShopifyConfig struct {
	// Domain is the myshopify domain of the store (e.g., acme.myshopify.com).
	Domain string `mapstructure:"SHOPIFY_DOMAIN" required:"true"`
	// AccessToken is the Admin API access token.
	AccessToken string `mapstructure:"SHOPIFY_ACCESS_TOKEN" required:"true"`
	// APIVersion is the Admin API version used for REST and GraphQL calls.
	APIVersion string `mapstructure:"SHOPIFY_API_VERSION" default:"2024-01"`
}

// PolicyConfig holds the per-deployment strategy selections.
type PolicyConfig struct {
	// StatusSource is "metafield" or "platform"; see the StatusSource constants.
	StatusSource string `mapstructure:"STATUS_SOURCE" default:"metafield"`
	// SlipStorage is "inline" or "reference"; see the SlipStorage constants.
	SlipStorage string `mapstructure:"SLIP_STORAGE" default:"inline"`
}

// UploadConfig holds the constraints applied to payment-slip uploads.
type UploadConfig struct {
	// MaxMB is the maximum accepted upload size in megabytes.
	MaxMB int `mapstructure:"UPLOAD_MAX_MB" default:"10"`
	// AllowPDF adds application/pdf to the accepted MIME types.
	AllowPDF bool `mapstructure:"UPLOAD_ALLOW_PDF" default:"false"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := validatePolicies(&config.Policy); err != nil {
		return nil, err
	}

	return &config, nil
}

// validatePolicies rejects unknown strategy selections at startup rather than
// letting them fall through silently at request time.
func validatePolicies(p *PolicyConfig) error {
	switch p.StatusSource {
	case StatusSourceMetafield, StatusSourcePlatform:
	default:
		return fmt.Errorf("invalid STATUS_SOURCE: %q", p.StatusSource)
	}

	switch p.SlipStorage {
	case SlipStorageInline, SlipStorageReference:
	default:
		return fmt.Errorf("invalid SLIP_STORAGE: %q", p.SlipStorage)
	}

	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
