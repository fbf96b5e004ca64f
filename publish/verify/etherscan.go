package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cosmo-local-credit/rewards/publish"
)

const (
	DefaultEtherscanURL = "https://api.etherscan.io/v2/api"

	defaultPollInterval = 5 * time.Second
	defaultHTTPTimeout  = 30 * time.Second

	statusPending  = "Pending in queue"
	statusVerified = "Pass - Verified"
)

type EtherscanConfig struct {
	APIURL       string
	APIKey       string
	ChainID      int64
	ArtifactsDir string
	ContractName string
	PollInterval time.Duration
}

// EtherscanClient verifies contracts through an Etherscan-compatible explorer
// API using the hardhat build-info as standard JSON input.
type EtherscanClient struct {
	http         *resty.Client
	apiURL       string
	apiKey       string
	chainID      int64
	artifactsDir string
	contractName string
	pollInterval time.Duration
	logger       *slog.Logger
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func NewEtherscanClient(cfg EtherscanConfig, logger *slog.Logger) (*EtherscanClient, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultEtherscanURL
	}
	if cfg.APIKey == "" {
		return nil, errors.New("explorer api key is required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("chain id is required for verification")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &EtherscanClient{
		http:         resty.New().SetTimeout(defaultHTTPTimeout),
		apiURL:       cfg.APIURL,
		apiKey:       cfg.APIKey,
		chainID:      cfg.ChainID,
		artifactsDir: cfg.ArtifactsDir,
		contractName: cfg.ContractName,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

// Verify implements Service.
func (c *EtherscanClient) Verify(ctx context.Context, req Request) error {
	artifact, err := publish.LoadArtifact(c.artifactsDir, c.contractName)
	if err != nil {
		return err
	}
	contractABI, err := artifact.ParsedABI()
	if err != nil {
		return err
	}
	buildInfo, err := artifact.LoadBuildInfo()
	if err != nil {
		return err
	}

	encodedArgs, err := EncodeConstructorArguments(contractABI, req.ConstructorArguments)
	if err != nil {
		return fmt.Errorf("encode constructor arguments: %w", err)
	}

	guid, err := c.submit(ctx, map[string]string{
		"module":                "contract",
		"action":                "verifysourcecode",
		"apikey":                c.apiKey,
		"contractaddress":       req.Address,
		"sourceCode":            string(buildInfo.Input),
		"codeformat":            "solidity-standard-json-input",
		"contractname":          artifact.FullyQualifiedName(),
		"compilerversion":       "v" + buildInfo.SolcLongVersion,
		"constructorArguements": hex.EncodeToString(encodedArgs),
	})
	if err != nil {
		return err
	}

	c.logger.Info("verification submitted",
		slog.String("address", req.Address),
		slog.String("guid", guid),
	)

	return c.waitForVerification(ctx, guid)
}

func (c *EtherscanClient) submit(ctx context.Context, form map[string]string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chainid", strconv.FormatInt(c.chainID, 10)).
		SetFormData(form).
		Post(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("%w: submit: %v", ErrVerificationService, err)
	}

	out, err := decodeResponse(resp)
	if err != nil {
		return "", err
	}
	if out.Status != "1" {
		return "", explorerError(out)
	}
	return out.Result, nil
}

func (c *EtherscanClient) waitForVerification(ctx context.Context, guid string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"module":  "contract",
				"action":  "checkverifystatus",
				"guid":    guid,
				"apikey":  c.apiKey,
				"chainid": strconv.FormatInt(c.chainID, 10),
			}).
			Get(c.apiURL)
		if err != nil {
			return fmt.Errorf("%w: check status: %v", ErrVerificationService, err)
		}

		out, err := decodeResponse(resp)
		if err != nil {
			return err
		}

		switch {
		case out.Result == statusVerified:
			return nil
		case out.Result == statusPending:
			c.logger.Debug("verification pending", slog.String("guid", guid))
		default:
			return explorerError(out)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for verification %s: %w", guid, ctx.Err())
		case <-ticker.C:
		}
	}
}

func decodeResponse(resp *resty.Response) (etherscanResponse, error) {
	if resp.IsError() {
		return etherscanResponse{}, fmt.Errorf("%w: HTTP %d: %s", ErrVerificationService, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	var out etherscanResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return etherscanResponse{}, fmt.Errorf("%w: decode response: %v", ErrVerificationService, err)
	}
	return out, nil
}

func explorerError(out etherscanResponse) error {
	if strings.Contains(strings.ToLower(out.Result), "already verified") {
		return ErrAlreadyVerified
	}
	return fmt.Errorf("%w: %s: %s", ErrVerificationService, out.Message, out.Result)
}
