package gender

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/LouYuanbo1/journalcrawler/internal/domain/model"
	"github.com/gocolly/colly/v2"
)

// Classifier 根据名字推断性别,返回值原样保存,不做校验
type Classifier interface {
	Classify(ctx context.Context, firstName string) (model.Gender, error)
}

type genderizeResponse struct {
	Name        string  `json:"name"`
	Gender      *string `json:"gender"`
	Probability float64 `json:"probability"`
	Count       int     `json:"count"`
}

type genderizeClassifier struct {
	collector *colly.Collector
	endpoint  string
	apiKey    string

	mu    sync.Mutex
	cache map[string]model.Gender
}

func InitGenderizeClassifier(cfg *config.Config) (Classifier, error) {
	c := colly.NewCollector(
		colly.UserAgent(cfg.Genderize.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       time.Duration(cfg.Genderize.Delay) * time.Second,
		RandomDelay: time.Duration(cfg.Genderize.RandomDelay) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("设置限速规则失败: %w", err)
	}
	log.Printf("InitGenderizeClassifier, endpoint: %s, delay: %d, randomDelay: %d", cfg.Genderize.Endpoint, cfg.Genderize.Delay, cfg.Genderize.RandomDelay)
	return &genderizeClassifier{
		collector: c,
		endpoint:  cfg.Genderize.Endpoint,
		apiKey:    cfg.Genderize.APIKey,
		cache:     map[string]model.Gender{},
	}, nil
}

func (g *genderizeClassifier) Classify(ctx context.Context, firstName string) (model.Gender, error) {
	key := strings.ToLower(firstName)
	g.mu.Lock()
	cached, ok := g.cache[key]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return model.Gender{}, fmt.Errorf("parse genderize endpoint: %w", err)
	}
	q := u.Query()
	q.Set("name", firstName)
	if g.apiKey != "" {
		q.Set("apikey", g.apiKey)
	}
	u.RawQuery = q.Encode()

	// Clone 共享底层 http 后端和限速规则,回调互不干扰
	c := g.collector.Clone()
	c.Context = ctx

	var (
		resp    genderizeResponse
		respErr error
	)
	c.OnResponse(func(r *colly.Response) {
		respErr = json.Unmarshal(r.Body, &resp)
	})
	c.OnError(func(r *colly.Response, err error) {
		respErr = fmt.Errorf("genderize status %d: %w", r.StatusCode, err)
	})
	if err := c.Visit(u.String()); err != nil && respErr == nil {
		respErr = err
	}
	if respErr != nil {
		return model.Gender{}, fmt.Errorf("classify %q: %w", firstName, respErr)
	}

	result := model.Gender{Probability: resp.Probability}
	if resp.Gender != nil {
		result.Label = *resp.Gender
	}
	g.mu.Lock()
	g.cache[key] = result
	g.mu.Unlock()
	return result, nil
}
