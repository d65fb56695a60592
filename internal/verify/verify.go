// Package verify checks a provisioned environment against the topology the
// descriptor declares. Starting from the six stack outputs it walks the
// reference chain between resources the same way the declarations wire
// them: gateway to handler, handler to table.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
)

const tableHashKey = "TestId"

// Options tunes a verification run.
type Options struct {
	// DevOrigin is the fixed local-development redirect the identity
	// client must authorize alongside the CDN domain.
	DevOrigin string
	// SkipDataPlane disables the table write/read/delete round trip.
	SkipDataPlane bool
	// HTTPTimeout bounds the gateway probe.
	HTTPTimeout time.Duration
}

// Check is the outcome of a single verification step.
type Check struct {
	Name   string
	Detail string
	Err    error
}

func (c Check) OK() bool { return c.Err == nil }

// Report aggregates every check of a run.
type Report []Check

// Failed counts the checks that did not pass.
func (r Report) Failed() int {
	n := 0
	for _, c := range r {
		if !c.OK() {
			n++
		}
	}
	return n
}

// Checker verifies one provisioned environment.
type Checker struct {
	outputs Outputs
	opts    Options

	sts        stsAPI
	s3         s3API
	cloudfront cloudfrontAPI
	cognito    cognitoAPI
	gateway    gatewayAPI
	lambda     lambdaAPI
	dynamo     dynamoAPI
	http       *http.Client
}

// Run executes every check and returns the aggregated report. Checks that
// depend on earlier resolution steps are skipped with an error when the
// step they depend on failed.
func (c *Checker) Run(ctx context.Context) Report {
	var report Report

	report = append(report, c.checkCallerIdentity(ctx))
	report = append(report, c.checkBucket(ctx))
	report = append(report, c.checkDistribution(ctx))
	report = append(report, c.checkUserPool(ctx))
	report = append(report, c.checkUserPoolClient(ctx))

	tableName, chain := c.checkGatewayChain(ctx)
	report = append(report, chain)

	if !c.opts.SkipDataPlane {
		report = append(report, c.checkDataPlane(ctx, tableName))
	}
	report = append(report, c.checkHTTPProbe(ctx))

	return report
}

func (c *Checker) checkCallerIdentity(ctx context.Context) Check {
	check := Check{Name: "caller identity"}
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		check.Err = fmt.Errorf("get caller identity: %w", err)
		return check
	}
	check.Detail = fmt.Sprintf("account %s", aws.ToString(out.Account))
	return check
}

func (c *Checker) checkBucket(ctx context.Context) Check {
	check := Check{Name: "site bucket"}
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.outputs.BucketName),
	})
	if err != nil {
		check.Err = fmt.Errorf("head bucket %s: %w", c.outputs.BucketName, err)
		return check
	}
	check.Detail = c.outputs.BucketName
	return check
}

func (c *Checker) checkDistribution(ctx context.Context) Check {
	check := Check{Name: "distribution"}
	out, err := c.cloudfront.GetDistribution(ctx, &cloudfront.GetDistributionInput{
		Id: aws.String(c.outputs.CloudFrontDistributionID),
	})
	if err != nil {
		check.Err = fmt.Errorf("get distribution %s: %w", c.outputs.CloudFrontDistributionID, err)
		return check
	}

	dist := out.Distribution
	if status := aws.ToString(dist.Status); status != "Deployed" {
		check.Err = fmt.Errorf("distribution status is %s, want Deployed", status)
		return check
	}
	if domain := aws.ToString(dist.DomainName); domain != c.outputs.CloudFrontURL {
		check.Err = fmt.Errorf("distribution domain is %s, want %s", domain, c.outputs.CloudFrontURL)
		return check
	}

	cfg := dist.DistributionConfig
	if cfg == nil || cfg.DefaultCacheBehavior == nil || aws.ToString(cfg.DefaultCacheBehavior.TargetOriginId) == "" {
		check.Err = fmt.Errorf("distribution has no default behavior origin")
		return check
	}

	apiBehaviors := 0
	if cfg.CacheBehaviors != nil {
		for _, b := range cfg.CacheBehaviors.Items {
			if strings.HasPrefix(aws.ToString(b.PathPattern), "/api") {
				apiBehaviors++
			}
		}
	}
	if apiBehaviors != 1 {
		check.Err = fmt.Errorf("distribution has %d /api behaviors, want 1", apiBehaviors)
		return check
	}

	check.Detail = c.outputs.CloudFrontURL
	return check
}

func (c *Checker) checkUserPool(ctx context.Context) Check {
	check := Check{Name: "user pool"}
	out, err := c.cognito.DescribeUserPool(ctx, &cognitoidentityprovider.DescribeUserPoolInput{
		UserPoolId: aws.String(c.outputs.UserPoolID),
	})
	if err != nil {
		check.Err = fmt.Errorf("describe user pool %s: %w", c.outputs.UserPoolID, err)
		return check
	}
	check.Detail = aws.ToString(out.UserPool.Id)
	return check
}

func (c *Checker) checkUserPoolClient(ctx context.Context) Check {
	check := Check{Name: "user pool client"}
	out, err := c.cognito.DescribeUserPoolClient(ctx, &cognitoidentityprovider.DescribeUserPoolClientInput{
		UserPoolId: aws.String(c.outputs.UserPoolID),
		ClientId:   aws.String(c.outputs.UserPoolClientID),
	})
	if err != nil {
		check.Err = fmt.Errorf("describe user pool client %s: %w", c.outputs.UserPoolClientID, err)
		return check
	}

	want := []string{c.opts.DevOrigin, "https://" + c.outputs.CloudFrontURL}
	client := out.UserPoolClient
	if err := urlSetMatches(client.CallbackURLs, want); err != nil {
		check.Err = fmt.Errorf("callback urls: %w", err)
		return check
	}
	if err := urlSetMatches(client.LogoutURLs, want); err != nil {
		check.Err = fmt.Errorf("logout urls: %w", err)
		return check
	}

	check.Detail = fmt.Sprintf("redirects %s", strings.Join(want, ", "))
	return check
}

// checkGatewayChain follows the reference chain the declarations wire:
// endpoint -> REST API -> root POST integration -> handler -> TABLE_NAME
// -> table. Returns the resolved table name for the data-plane check.
func (c *Checker) checkGatewayChain(ctx context.Context) (string, Check) {
	check := Check{Name: "gateway chain"}

	apiID, _, stage, err := apiEndpointParts(c.outputs.APIEndpoint)
	if err != nil {
		check.Err = err
		return "", check
	}

	resources, err := c.gateway.GetResources(ctx, &apigateway.GetResourcesInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		check.Err = fmt.Errorf("get resources for api %s: %w", apiID, err)
		return "", check
	}

	rootID := ""
	for _, r := range resources.Items {
		if aws.ToString(r.Path) == "/" {
			rootID = aws.ToString(r.Id)
			break
		}
	}
	if rootID == "" {
		check.Err = fmt.Errorf("api %s has no root resource", apiID)
		return "", check
	}

	if _, err := c.gateway.GetMethod(ctx, &apigateway.GetMethodInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(rootID),
		HttpMethod: aws.String("POST"),
	}); err != nil {
		check.Err = fmt.Errorf("root POST method: %w", err)
		return "", check
	}

	integration, err := c.gateway.GetIntegration(ctx, &apigateway.GetIntegrationInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(rootID),
		HttpMethod: aws.String("POST"),
	})
	if err != nil {
		check.Err = fmt.Errorf("root POST integration: %w", err)
		return "", check
	}

	functionARN, err := lambdaArnFromIntegrationURI(aws.ToString(integration.Uri))
	if err != nil {
		check.Err = err
		return "", check
	}

	fn, err := c.lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(functionARN),
	})
	if err != nil {
		check.Err = fmt.Errorf("get function configuration: %w", err)
		return "", check
	}

	if fn.Environment == nil || len(fn.Environment.Variables) != 1 {
		check.Err = fmt.Errorf("handler must carry exactly one environment variable")
		return "", check
	}
	tableName, ok := fn.Environment.Variables["TABLE_NAME"]
	if !ok || tableName == "" {
		check.Err = fmt.Errorf("handler environment is missing TABLE_NAME")
		return "", check
	}

	table, err := c.dynamo.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		check.Err = fmt.Errorf("describe table %s: %w", tableName, err)
		return "", check
	}
	if table.Table.TableStatus != dynamodbtypes.TableStatusActive {
		check.Err = fmt.Errorf("table %s status is %s, want ACTIVE", tableName, table.Table.TableStatus)
		return "", check
	}
	if err := tableKeyedByTestID(table.Table); err != nil {
		check.Err = err
		return "", check
	}

	check.Detail = fmt.Sprintf("api %s stage %s -> %s -> table %s", apiID, stage, aws.ToString(fn.FunctionName), tableName)
	return tableName, check
}

func (c *Checker) checkDataPlane(ctx context.Context, tableName string) Check {
	check := Check{Name: "data plane"}
	if tableName == "" {
		check.Err = fmt.Errorf("skipped: table name not resolved")
		return check
	}

	id := uuid.NewString()
	key := map[string]dynamodbtypes.AttributeValue{
		tableHashKey: &dynamodbtypes.AttributeValueMemberS{Value: id},
	}

	if _, err := c.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      key,
	}); err != nil {
		check.Err = fmt.Errorf("put item: %w", err)
		return check
	}

	got, err := c.dynamo.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		check.Err = fmt.Errorf("get item: %w", err)
		return check
	}
	if len(got.Item) == 0 {
		check.Err = fmt.Errorf("item %s not found after write", id)
		return check
	}

	if _, err := c.dynamo.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	}); err != nil {
		check.Err = fmt.Errorf("delete item: %w", err)
		return check
	}

	check.Detail = fmt.Sprintf("round trip %s", id)
	return check
}

func (c *Checker) checkHTTPProbe(ctx context.Context) Check {
	check := Check{Name: "http probe"}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.outputs.APIEndpoint, strings.NewReader("{}"))
	if err != nil {
		check.Err = fmt.Errorf("build probe request: %w", err)
		return check
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		check.Err = fmt.Errorf("probe %s: %w", c.outputs.APIEndpoint, err)
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		check.Err = fmt.Errorf("probe returned %d, want 200", resp.StatusCode)
		return check
	}
	check.Detail = fmt.Sprintf("POST %s -> 200", c.outputs.APIEndpoint)
	return check
}

func urlSetMatches(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("have %d entries %v, want %v", len(got), got, want)
	}
	set := make(map[string]bool, len(got))
	for _, u := range got {
		set[u] = true
	}
	for _, u := range want {
		if !set[u] {
			return fmt.Errorf("missing %s in %v", u, got)
		}
	}
	return nil
}

func tableKeyedByTestID(table *dynamodbtypes.TableDescription) error {
	if len(table.KeySchema) != 1 {
		return fmt.Errorf("table has %d key elements, want 1", len(table.KeySchema))
	}
	if name := aws.ToString(table.KeySchema[0].AttributeName); name != tableHashKey {
		return fmt.Errorf("table hash key is %s, want %s", name, tableHashKey)
	}
	for _, def := range table.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == tableHashKey {
			if def.AttributeType != dynamodbtypes.ScalarAttributeTypeS {
				return fmt.Errorf("hash key type is %s, want S", def.AttributeType)
			}
			return nil
		}
	}
	return fmt.Errorf("table does not define attribute %s", tableHashKey)
}
