package doris

import (
	"context"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

func init() {
	queryengine.Register(queryengine.Registration{
		Info: queryengine.EngineInfo{
			Type:        "doris",
			DisplayName: "Apache Doris",
			Schemes:     []string{"doris", "mysql", "starrocks"},
		},
		Factory: func(ctx context.Context, d *queryengine.Descriptor, logger *zap.Logger) (queryengine.Engine, error) {
			cfg, err := FromDescriptor(d)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg, logger)
		},
	})
}
