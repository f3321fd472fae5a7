package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var loadAWSConfig = sync.OnceValues(func() (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to get aws config: %w", err)
	}
	return cfg, nil
})

var _ config.SecretResolver = &lazySSMResolver{}

// lazySSMResolver only talks to AWS once a value actually uses the ssm: prefix,
// so local runs work without credentials.
type lazySSMResolver struct {
	once     sync.Once
	resolver *config.SSMResolver
	err      error
}

func (l *lazySSMResolver) Resolve(ctx context.Context, name string) (string, error) {
	l.once.Do(func() {
		cfg, err := loadAWSConfig()
		if err != nil {
			l.err = err
			return
		}
		l.resolver = config.NewSSMResolver(ssm.NewFromConfig(cfg))
	})
	if l.err != nil {
		return "", l.err
	}

	return l.resolver.Resolve(ctx, name)
}
