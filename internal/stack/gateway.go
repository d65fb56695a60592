package stack

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/apigateway"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const gatewayStageName = "prod"

// The integration hands the handler a fixed payload regardless of what the
// caller sent, and maps every integration result to HTTP 200.
const gatewayRequestTemplate = `{"statusCode": 200}`

// Gateway is the HTTP entry point: a REST API with a single POST method at
// the root, integrated with the request handler. Cross-origin calls are
// allowed from any origin with any method via response headers, so POST
// stays the only declared method.
type Gateway struct {
	Api         *apigateway.RestApi
	Method      *apigateway.Method
	Integration *apigateway.Integration
	Stage       *apigateway.Stage
	InvokeURL   pulumi.StringOutput
}

type GatewayArgs struct {
	Handler *Handler
}

func newGateway(ctx *pulumi.Context, args GatewayArgs) (*Gateway, error) {
	api, err := apigateway.NewRestApi(ctx, "web-api", &apigateway.RestApiArgs{
		Description: pulumi.String("Entry point for the web application handler"),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring rest api: %w", err)
	}

	method, err := apigateway.NewMethod(ctx, "web-api-post", &apigateway.MethodArgs{
		RestApi:       api.ID(),
		ResourceId:    api.RootResourceId,
		HttpMethod:    pulumi.String("POST"),
		Authorization: pulumi.String("NONE"),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring root POST method: %w", err)
	}

	integration, err := apigateway.NewIntegration(ctx, "web-api-post-integration", &apigateway.IntegrationArgs{
		RestApi:               api.ID(),
		ResourceId:            api.RootResourceId,
		HttpMethod:            method.HttpMethod,
		Type:                  pulumi.String("AWS"),
		IntegrationHttpMethod: pulumi.String("POST"),
		Uri:                   args.Handler.Function.InvokeArn,
		RequestTemplates: pulumi.StringMap{
			"application/json": pulumi.String(gatewayRequestTemplate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring handler integration: %w", err)
	}

	methodResponse, err := apigateway.NewMethodResponse(ctx, "web-api-post-response", &apigateway.MethodResponseArgs{
		RestApi:    api.ID(),
		ResourceId: api.RootResourceId,
		HttpMethod: method.HttpMethod,
		StatusCode: pulumi.String("200"),
		ResponseParameters: pulumi.BoolMap{
			"method.response.header.Access-Control-Allow-Origin":  pulumi.Bool(true),
			"method.response.header.Access-Control-Allow-Methods": pulumi.Bool(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring method response: %w", err)
	}

	integrationResponse, err := apigateway.NewIntegrationResponse(ctx, "web-api-post-integration-response", &apigateway.IntegrationResponseArgs{
		RestApi:    api.ID(),
		ResourceId: api.RootResourceId,
		HttpMethod: method.HttpMethod,
		StatusCode: methodResponse.StatusCode,
		ResponseParameters: pulumi.StringMap{
			"method.response.header.Access-Control-Allow-Origin":  pulumi.String("'*'"),
			"method.response.header.Access-Control-Allow-Methods": pulumi.String("'*'"),
		},
	}, pulumi.DependsOn([]pulumi.Resource{integration}))
	if err != nil {
		return nil, fmt.Errorf("declaring integration response: %w", err)
	}

	_, err = lambda.NewPermission(ctx, "web-api-invoke", &lambda.PermissionArgs{
		Action:    pulumi.String("lambda:InvokeFunction"),
		Function:  args.Handler.Function.Name,
		Principal: pulumi.String("apigateway.amazonaws.com"),
		SourceArn: pulumi.Sprintf("%s/*/*", api.ExecutionArn),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring invoke permission: %w", err)
	}

	deployment, err := apigateway.NewDeployment(ctx, "web-api-deployment", &apigateway.DeploymentArgs{
		RestApi: api.ID(),
	}, pulumi.DependsOn([]pulumi.Resource{method, integration, integrationResponse}))
	if err != nil {
		return nil, fmt.Errorf("declaring api deployment: %w", err)
	}

	stage, err := apigateway.NewStage(ctx, "web-api-stage", &apigateway.StageArgs{
		RestApi:    api.ID(),
		Deployment: deployment.ID(),
		StageName:  pulumi.String(gatewayStageName),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring api stage: %w", err)
	}

	return &Gateway{
		Api:         api,
		Method:      method,
		Integration: integration,
		Stage:       stage,
		InvokeURL:   stage.InvokeUrl,
	}, nil
}
