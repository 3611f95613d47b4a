package translate

import (
	"context"
	"fmt"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

const tencentEndpoint = "tmt.tencentcloudapi.com"

type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string // Defaults to ap-beijing
	ProjectID int64
	Timeout   time.Duration

	// Endpoint and Scheme override the public API host.
	Endpoint string
	Scheme   string
}

// Tencent calls the signed TextTranslate action of Tencent Machine Translation.
type Tencent struct {
	client    *tmt.Client
	projectID int64
}

func NewTencent(cfg TencentConfig) (*Tencent, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("tencent: %w", ErrMissingCredentials)
	}
	if cfg.Region == "" {
		cfg.Region = "ap-beijing"
	}

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = tencentEndpoint
	if cfg.Endpoint != "" {
		cpf.HttpProfile.Endpoint = cfg.Endpoint
	}
	if cfg.Scheme != "" {
		cpf.HttpProfile.Scheme = cfg.Scheme
	}
	if cfg.Timeout > 0 {
		cpf.HttpProfile.ReqTimeout = int(cfg.Timeout.Seconds())
	}

	client, err := tmt.NewClient(common.NewCredential(cfg.SecretID, cfg.SecretKey), cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("tencent: failed to create client: %w", err)
	}
	return &Tencent{client: client, projectID: cfg.ProjectID}, nil
}

func (t *Tencent) Name() string { return "tencent" }

func (t *Tencent) Translate(ctx context.Context, text, source, target string) (string, error) {
	req := tmt.NewTextTranslateRequest()
	req.SourceText = common.StringPtr(text)
	req.Source = common.StringPtr(source)
	req.Target = common.StringPtr(target)
	req.ProjectId = common.Int64Ptr(t.projectID)

	resp, err := t.client.TextTranslateWithContext(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Response == nil || resp.Response.TargetText == nil {
		return "", ErrEmptyTranslation
	}
	return *resp.Response.TargetText, nil
}
