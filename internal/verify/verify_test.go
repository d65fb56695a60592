package verify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigatewaytypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cloudfronttypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDomain      = "d111111abcdef8.cloudfront.net"
	testEndpoint    = "https://abc123.execute-api.us-east-1.amazonaws.com/prod"
	testFunctionARN = "arn:aws:lambda:us-east-1:123456789012:function:request-handler"
	testTableName   = "results-table-phys"
)

type fakeSTS struct{ err error }

func (f fakeSTS) GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
}

type fakeS3 struct{ err error }

func (f fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadBucketOutput{}, nil
}

type fakeCloudFront struct {
	status string
	domain string
}

func (f fakeCloudFront) GetDistribution(ctx context.Context, in *cloudfront.GetDistributionInput, opts ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error) {
	return &cloudfront.GetDistributionOutput{
		Distribution: &cloudfronttypes.Distribution{
			Status:     aws.String(f.status),
			DomainName: aws.String(f.domain),
			DistributionConfig: &cloudfronttypes.DistributionConfig{
				DefaultCacheBehavior: &cloudfronttypes.DefaultCacheBehavior{
					TargetOriginId: aws.String("site-bucket-origin"),
				},
				CacheBehaviors: &cloudfronttypes.CacheBehaviors{
					Items: []cloudfronttypes.CacheBehavior{
						{PathPattern: aws.String("/api")},
					},
				},
			},
		},
	}, nil
}

type fakeCognito struct {
	callbacks []string
	logouts   []string
}

func (f fakeCognito) DescribeUserPool(ctx context.Context, in *cognitoidentityprovider.DescribeUserPoolInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.DescribeUserPoolOutput, error) {
	return &cognitoidentityprovider.DescribeUserPoolOutput{
		UserPool: &cognitotypes.UserPoolType{Id: in.UserPoolId},
	}, nil
}

func (f fakeCognito) DescribeUserPoolClient(ctx context.Context, in *cognitoidentityprovider.DescribeUserPoolClientInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.DescribeUserPoolClientOutput, error) {
	return &cognitoidentityprovider.DescribeUserPoolClientOutput{
		UserPoolClient: &cognitotypes.UserPoolClientType{
			CallbackURLs: f.callbacks,
			LogoutURLs:   f.logouts,
		},
	}, nil
}

type fakeGateway struct{}

func (f fakeGateway) GetResources(ctx context.Context, in *apigateway.GetResourcesInput, opts ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error) {
	return &apigateway.GetResourcesOutput{
		Items: []apigatewaytypes.Resource{
			{Id: aws.String("r0"), Path: aws.String("/")},
		},
	}, nil
}

func (f fakeGateway) GetMethod(ctx context.Context, in *apigateway.GetMethodInput, opts ...func(*apigateway.Options)) (*apigateway.GetMethodOutput, error) {
	return &apigateway.GetMethodOutput{HttpMethod: in.HttpMethod}, nil
}

func (f fakeGateway) GetIntegration(ctx context.Context, in *apigateway.GetIntegrationInput, opts ...func(*apigateway.Options)) (*apigateway.GetIntegrationOutput, error) {
	return &apigateway.GetIntegrationOutput{
		Uri: aws.String("arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/" + testFunctionARN + "/invocations"),
	}, nil
}

type fakeLambda struct {
	env map[string]string
}

func (f fakeLambda) GetFunctionConfiguration(ctx context.Context, in *lambda.GetFunctionConfigurationInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	return &lambda.GetFunctionConfigurationOutput{
		FunctionName: aws.String("request-handler"),
		Environment:  &lambdatypes.EnvironmentResponse{Variables: f.env},
	}, nil
}

type fakeDynamo struct {
	items map[string]map[string]dynamodbtypes.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]dynamodbtypes.AttributeValue)}
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{
		Table: &dynamodbtypes.TableDescription{
			TableName:   in.TableName,
			TableStatus: dynamodbtypes.TableStatusActive,
			KeySchema: []dynamodbtypes.KeySchemaElement{
				{AttributeName: aws.String("TestId"), KeyType: dynamodbtypes.KeyTypeHash},
			},
			AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
				{AttributeName: aws.String("TestId"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			},
		},
	}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := in.Item["TestId"].(*dynamodbtypes.AttributeValueMemberS).Value
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["TestId"].(*dynamodbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := in.Key["TestId"].(*dynamodbtypes.AttributeValueMemberS).Value
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func probeResponding(status int) *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}),
	}
}

func testOutputs() Outputs {
	return Outputs{
		BucketName:               "webstack-site-1234567",
		UserPoolID:               "us-east-1_ABCdefGHI",
		UserPoolClientID:         "1h57kf5cpq17m0eml12EXAMPLE",
		CloudFrontURL:            testDomain,
		CloudFrontDistributionID: "E2EXAMPLE",
		APIEndpoint:              testEndpoint,
	}
}

func testChecker() *Checker {
	redirects := []string{"http://localhost:3000", "https://" + testDomain}
	return &Checker{
		outputs:    testOutputs(),
		opts:       Options{DevOrigin: "http://localhost:3000"},
		sts:        fakeSTS{},
		s3:         fakeS3{},
		cloudfront: fakeCloudFront{status: "Deployed", domain: testDomain},
		cognito:    fakeCognito{callbacks: redirects, logouts: redirects},
		gateway:    fakeGateway{},
		lambda:     fakeLambda{env: map[string]string{"TABLE_NAME": testTableName}},
		dynamo:     newFakeDynamo(),
		http:       probeResponding(http.StatusOK),
	}
}

func TestRunAllChecksPass(t *testing.T) {
	c := testChecker()

	report := c.Run(context.Background())

	require.Len(t, report, 8)
	for _, check := range report {
		assert.NoError(t, check.Err, "check %s", check.Name)
	}
	assert.Equal(t, 0, report.Failed())
}

func TestRunSkipsDataPlane(t *testing.T) {
	c := testChecker()
	c.opts.SkipDataPlane = true

	report := c.Run(context.Background())

	require.Len(t, report, 7)
	for _, check := range report {
		assert.NotEqual(t, "data plane", check.Name)
	}
}

func TestGatewayChainRejectsExtraEnv(t *testing.T) {
	c := testChecker()
	c.lambda = fakeLambda{env: map[string]string{
		"TABLE_NAME": testTableName,
		"DEBUG":      "1",
	}}

	report := c.Run(context.Background())

	// The chain fails and the data-plane check cannot resolve a table.
	assert.Equal(t, 2, report.Failed())
}

func TestDistributionDomainMismatch(t *testing.T) {
	c := testChecker()
	c.cloudfront = fakeCloudFront{status: "Deployed", domain: "other.cloudfront.net"}

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Failed())
}

func TestUserPoolClientRedirectMismatch(t *testing.T) {
	c := testChecker()
	c.cognito = fakeCognito{
		callbacks: []string{"http://localhost:3000"},
		logouts:   []string{"http://localhost:3000", "https://" + testDomain},
	}

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Failed())
}

func TestHTTPProbeFailure(t *testing.T) {
	c := testChecker()
	c.http = probeResponding(http.StatusForbidden)

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Failed())
}

func TestAPIEndpointParts(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		wantID     string
		wantRegion string
		wantStage  string
		wantError  bool
	}{
		{
			name:       "Valid endpoint",
			endpoint:   testEndpoint,
			wantID:     "abc123",
			wantRegion: "us-east-1",
			wantStage:  "prod",
		},
		{
			name:      "Missing stage",
			endpoint:  "https://abc123.execute-api.us-east-1.amazonaws.com",
			wantError: true,
		},
		{
			name:      "Not execute-api",
			endpoint:  "https://example.com/prod",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, region, stage, err := apiEndpointParts(tt.endpoint)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantRegion, region)
			assert.Equal(t, tt.wantStage, stage)
		})
	}
}

func TestLambdaArnFromIntegrationURI(t *testing.T) {
	uri := "arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/" + testFunctionARN + "/invocations"
	arn, err := lambdaArnFromIntegrationURI(uri)
	require.NoError(t, err)
	assert.Equal(t, testFunctionARN, arn)

	_, err = lambdaArnFromIntegrationURI("http://example.com")
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	full := map[string]string{
		"BucketName":               "b",
		"UserPoolId":               "p",
		"UserPoolWebClientId":      "c",
		"CloudFrontURL":            "d",
		"CloudFrontDistributionId": "i",
		"ApiEndpoint":              "e",
	}

	o, err := FromMap(full)
	require.NoError(t, err)
	assert.Equal(t, "b", o.BucketName)
	assert.Equal(t, "e", o.APIEndpoint)

	for name := range full {
		t.Run("missing "+name, func(t *testing.T) {
			partial := make(map[string]string, len(full)-1)
			for k, v := range full {
				if k != name {
					partial[k] = v
				}
			}
			_, err := FromMap(partial)
			assert.Error(t, err)
		})
	}

	empty := make(map[string]string, len(full))
	for k, v := range full {
		empty[k] = v
	}
	empty["BucketName"] = ""
	_, err = FromMap(empty)
	assert.Error(t, err)
}
