// Package publishers mirrors every announced entry to optional downstream
// sinks (webhooks, SQS, SNS, Pub/Sub) declared in a publishers file.
package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink entry of the publishers file.
type PublisherConfig struct {
	ID      string               `json:"id" yaml:"id"`
	Type    string               `json:"type" yaml:"type"`
	Enabled *bool                `json:"enabled" yaml:"enabled"`
	SQS     *SQSPublisherConfig  `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig  `json:"sns" yaml:"sns"`
	HTTP    *HTTPPublisherConfig `json:"http" yaml:"http"`
	GCP     *GCPQueueConfig      `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// SQSPublisherConfig holds AWS SQS settings. A queue URL ending in .fifo
// enables FIFO grouping and deduplication.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
	AWSAuth  `yaml:",inline"`
}

// SNSPublisherConfig holds AWS SNS settings.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
	AWSAuth  `yaml:",inline"`
}

// GCPQueueConfig holds Google Cloud Pub/Sub settings. Without a credentials
// file, application default credentials are used.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// ConfigRegistry is the parsed publishers file, in file order.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry parses a YAML or JSON publishers file. Every entry is
// normalized and validated; the first invalid one fails the load.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &file)
	default:
		return nil, fmt.Errorf("publishers file extension %q not supported (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{idx: make(map[string]int, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg = sanitizePublisherConfig(cfg)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if c := cfg.SQS; c != nil {
		cfg.SQS = &SQSPublisherConfig{QueueURL: strings.TrimSpace(c.QueueURL), Region: strings.TrimSpace(c.Region), AWSAuth: c.AWSAuth.sanitize()}
	}
	if c := cfg.SNS; c != nil {
		cfg.SNS = &SNSPublisherConfig{TopicARN: strings.TrimSpace(c.TopicARN), Region: strings.TrimSpace(c.Region), AWSAuth: c.AWSAuth.sanitize()}
	}
	if c := cfg.GCP; c != nil {
		cfg.GCP = &GCPQueueConfig{
			ProjectID:       strings.TrimSpace(c.ProjectID),
			Topic:           strings.TrimSpace(c.Topic),
			CredentialsFile: strings.TrimSpace(c.CredentialsFile),
		}
	}
	if c := cfg.HTTP; c != nil {
		h := HTTPPublisherConfig{
			URL:            strings.TrimSpace(c.URL),
			Method:         strings.ToUpper(strings.TrimSpace(c.Method)),
			Headers:        sanitizeHeaders(c.Headers),
			TimeoutSeconds: c.TimeoutSeconds,
		}
		if h.Method == "" {
			h.Method = httpDefaultMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &h
	}
	return cfg
}

// sanitizeHeaders trims names and values and drops empty ones.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// typeValidators check the block each publisher type needs.
var typeValidators = map[string]func(PublisherConfig) error{
	TypeSQS: func(cfg PublisherConfig) error {
		switch {
		case cfg.SQS == nil:
			return errors.New("sqs config required")
		case cfg.SQS.QueueURL == "":
			return errors.New("sqs.uri is required")
		case cfg.SQS.Region == "":
			return errors.New("sqs.region is required")
		}
		return cfg.SQS.AWSAuth.validate()
	},
	TypeSNS: func(cfg PublisherConfig) error {
		switch {
		case cfg.SNS == nil:
			return errors.New("sns config required")
		case cfg.SNS.TopicARN == "":
			return errors.New("sns.topic_arn is required")
		case cfg.SNS.Region == "":
			return errors.New("sns.region is required")
		}
		return cfg.SNS.AWSAuth.validate()
	},
	TypeGCPPubSub: func(cfg PublisherConfig) error {
		switch {
		case cfg.GCP == nil:
			return errors.New("gcp_pubsub config required")
		case cfg.GCP.ProjectID == "" || cfg.GCP.Topic == "":
			return errors.New("gcp_pubsub.project_id and gcp_pubsub.topic are required")
		}
		return nil
	},
	TypeHTTP: func(cfg PublisherConfig) error {
		switch {
		case cfg.HTTP == nil:
			return errors.New("http config required")
		case cfg.HTTP.URL == "":
			return errors.New("http.url is required")
		}
		return nil
	},
}

func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	}
	validate, ok := typeValidators[cfg.Type]
	if !ok {
		return fmt.Errorf("unknown type %q for publisher %q", cfg.Type, cfg.ID)
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers that are not switched off.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
