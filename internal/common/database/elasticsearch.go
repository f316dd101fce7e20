package database

import (
	"context"
	"fmt"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

// Elasticsearch holds the client behind the submission search index.
type Elasticsearch struct {
	Client *elasticsearch.Client
}

func OpenElasticsearch(cfg config.ElasticsearchConfig) (*Elasticsearch, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if len(esCfg.Addresses) == 0 {
		if url := cfg.GetURL(); url != "" {
			esCfg.Addresses = []string{url}
		}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Elasticsearch{Client: es}, nil
}

// ConnectElasticsearch builds the client and waits for the cluster.
func ConnectElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, policy RetryPolicy, log logger.Logger) (*Elasticsearch, error) {
	es, err := OpenElasticsearch(cfg)
	if err != nil {
		return nil, err
	}
	if err := WaitReady(ctx, "elasticsearch", es, policy, log); err != nil {
		return nil, err
	}
	log.Info("elasticsearch connected", map[string]interface{}{"index": cfg.Index})
	return es, nil
}

func (e *Elasticsearch) Ping(ctx context.Context) error {
	res, err := e.Client.Ping(e.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}
