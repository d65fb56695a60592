package stack

import (
	"fmt"
	"math/rand"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/oakmoss/webstack/internal/config"
)

// Storage is the site content bucket. It is never publicly readable; the
// CDN reads it through an origin access identity (see cdn.go).
type Storage struct {
	Bucket *s3.BucketV2
}

func newStorage(ctx *pulumi.Context, cfg *config.Config) (*Storage, error) {
	// Bucket names are globally unique, so the name carries a random
	// suffix drawn at evaluation time. Only this attribute varies between
	// evaluations; the logical resource name stays fixed.
	name := fmt.Sprintf("%s-%d", cfg.Storage.BucketPrefix, rand.Intn(10000000))

	bucket, err := s3.NewBucketV2(ctx, "site-bucket", &s3.BucketV2Args{
		Bucket: pulumi.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring site bucket: %w", err)
	}

	_, err = s3.NewBucketPublicAccessBlock(ctx, "site-bucket-public-access", &s3.BucketPublicAccessBlockArgs{
		Bucket:                bucket.ID(),
		BlockPublicAcls:       pulumi.Bool(true),
		BlockPublicPolicy:     pulumi.Bool(true),
		IgnorePublicAcls:      pulumi.Bool(true),
		RestrictPublicBuckets: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring site bucket access block: %w", err)
	}

	return &Storage{Bucket: bucket}, nil
}
