package stack

import (
	"fmt"
	"net/url"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudfront"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	storageOriginID = "site-bucket-origin"
	apiOriginID     = "web-api-origin"

	// Requests under this path go to the gateway instead of the bucket.
	apiPathPattern = "/api"
)

// Cdn is the content-delivery distribution. The bucket serves the default
// behavior through an origin access identity; the gateway serves the
// path-scoped behavior.
type Cdn struct {
	Identity     *cloudfront.OriginAccessIdentity
	Distribution *cloudfront.Distribution
}

type CdnArgs struct {
	Storage *Storage
	Gateway *Gateway
}

func newCdn(ctx *pulumi.Context, args CdnArgs) (*Cdn, error) {
	oai, err := cloudfront.NewOriginAccessIdentity(ctx, "site-origin-identity", &cloudfront.OriginAccessIdentityArgs{
		Comment: pulumi.String("Read access to the site bucket"),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring origin access identity: %w", err)
	}

	// The bucket stays private; only the distribution's identity may read
	// objects from it.
	readPolicy := iam.GetPolicyDocumentOutput(ctx, iam.GetPolicyDocumentOutputArgs{
		Statements: iam.GetPolicyDocumentStatementArray{
			iam.GetPolicyDocumentStatementArgs{
				Actions: pulumi.StringArray{pulumi.String("s3:GetObject")},
				Resources: pulumi.StringArray{
					pulumi.Sprintf("%s/*", args.Storage.Bucket.Arn),
				},
				Principals: iam.GetPolicyDocumentStatementPrincipalArray{
					iam.GetPolicyDocumentStatementPrincipalArgs{
						Type:        pulumi.String("AWS"),
						Identifiers: pulumi.StringArray{oai.IamArn},
					},
				},
			},
		},
	})

	_, err = s3.NewBucketPolicy(ctx, "site-bucket-policy", &s3.BucketPolicyArgs{
		Bucket: args.Storage.Bucket.ID(),
		Policy: readPolicy.Json(),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring site bucket policy: %w", err)
	}

	apiDomain := args.Gateway.InvokeURL.ApplyT(func(raw string) (string, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parsing gateway invoke url: %w", err)
		}
		return u.Host, nil
	}).(pulumi.StringOutput)

	apiOriginPath := args.Gateway.InvokeURL.ApplyT(func(raw string) (string, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parsing gateway invoke url: %w", err)
		}
		return u.Path, nil
	}).(pulumi.StringOutput)

	distribution, err := cloudfront.NewDistribution(ctx, "site-distribution", &cloudfront.DistributionArgs{
		Enabled:           pulumi.Bool(true),
		DefaultRootObject: pulumi.String("index.html"),
		Origins: cloudfront.DistributionOriginArray{
			cloudfront.DistributionOriginArgs{
				OriginId:   pulumi.String(storageOriginID),
				DomainName: args.Storage.Bucket.BucketRegionalDomainName,
				S3OriginConfig: &cloudfront.DistributionOriginS3OriginConfigArgs{
					OriginAccessIdentity: oai.CloudfrontAccessIdentityPath,
				},
			},
			cloudfront.DistributionOriginArgs{
				OriginId:   pulumi.String(apiOriginID),
				DomainName: apiDomain,
				OriginPath: apiOriginPath,
				CustomOriginConfig: &cloudfront.DistributionOriginCustomOriginConfigArgs{
					HttpPort:             pulumi.Int(80),
					HttpsPort:            pulumi.Int(443),
					OriginProtocolPolicy: pulumi.String("https-only"),
					OriginSslProtocols:   pulumi.StringArray{pulumi.String("TLSv1.2")},
				},
			},
		},
		DefaultCacheBehavior: &cloudfront.DistributionDefaultCacheBehaviorArgs{
			TargetOriginId:       pulumi.String(storageOriginID),
			ViewerProtocolPolicy: pulumi.String("redirect-to-https"),
			AllowedMethods:       pulumi.StringArray{pulumi.String("GET"), pulumi.String("HEAD")},
			CachedMethods:        pulumi.StringArray{pulumi.String("GET"), pulumi.String("HEAD")},
			ForwardedValues: &cloudfront.DistributionDefaultCacheBehaviorForwardedValuesArgs{
				QueryString: pulumi.Bool(false),
				Cookies: &cloudfront.DistributionDefaultCacheBehaviorForwardedValuesCookiesArgs{
					Forward: pulumi.String("none"),
				},
			},
		},
		OrderedCacheBehaviors: cloudfront.DistributionOrderedCacheBehaviorArray{
			cloudfront.DistributionOrderedCacheBehaviorArgs{
				PathPattern:          pulumi.String(apiPathPattern),
				TargetOriginId:       pulumi.String(apiOriginID),
				ViewerProtocolPolicy: pulumi.String("https-only"),
				AllowedMethods: pulumi.StringArray{
					pulumi.String("DELETE"), pulumi.String("GET"), pulumi.String("HEAD"),
					pulumi.String("OPTIONS"), pulumi.String("PATCH"), pulumi.String("POST"),
					pulumi.String("PUT"),
				},
				CachedMethods: pulumi.StringArray{pulumi.String("GET"), pulumi.String("HEAD")},
				// API responses are never cached.
				MinTtl:     pulumi.Int(0),
				DefaultTtl: pulumi.Int(0),
				MaxTtl:     pulumi.Int(0),
				ForwardedValues: &cloudfront.DistributionOrderedCacheBehaviorForwardedValuesArgs{
					QueryString: pulumi.Bool(true),
					Headers:     pulumi.StringArray{pulumi.String("Authorization")},
					Cookies: &cloudfront.DistributionOrderedCacheBehaviorForwardedValuesCookiesArgs{
						Forward: pulumi.String("none"),
					},
				},
			},
		},
		Restrictions: &cloudfront.DistributionRestrictionsArgs{
			GeoRestriction: &cloudfront.DistributionRestrictionsGeoRestrictionArgs{
				RestrictionType: pulumi.String("none"),
			},
		},
		ViewerCertificate: &cloudfront.DistributionViewerCertificateArgs{
			CloudfrontDefaultCertificate: pulumi.Bool(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring site distribution: %w", err)
	}

	return &Cdn{Identity: oai, Distribution: distribution}, nil
}
