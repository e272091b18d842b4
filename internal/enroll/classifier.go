package enroll

import (
	"context"
	"fmt"

	"offerpilot/pkg/model"
)

// Classifier 从当前页面中挑出可操作的优惠
type Classifier struct {
	gateway   PageGateway
	attempted *AttemptedSet
}

// NewClassifier 创建分类器
func NewClassifier(g PageGateway, attempted *AttemptedSet) *Classifier {
	return &Classifier{gateway: g, attempted: attempted}
}

// Classify 排除已尝试与页面已标记报名的项，保持文档顺序，无副作用
func (c *Classifier) Classify(ctx context.Context) ([]model.Item, error) {
	candidates, err := c.gateway.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	items := make([]model.Item, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Enrolled || c.attempted.Has(cand.Label) {
			continue
		}
		items = append(items, model.Item{Label: cand.Label})
	}
	return items, nil
}
