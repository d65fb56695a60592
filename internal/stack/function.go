package stack

import (
	"encoding/json"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/oakmoss/webstack/internal/config"
)

// Environment variable the handler reads the table name from.
const tableNameEnv = "TABLE_NAME"

// Handler is the request-handling function plus its execution role. The
// handler code itself is an external artifact packaged from the configured
// code path; this declaration only wires runtime, entry point, environment
// and table access.
type Handler struct {
	Role     *iam.Role
	Function *lambda.Function
}

type HandlerArgs struct {
	Table *Table
}

func newHandler(ctx *pulumi.Context, cfg *config.Config, args HandlerArgs) (*Handler, error) {
	assume := iam.GetPolicyDocumentOutput(ctx, iam.GetPolicyDocumentOutputArgs{
		Statements: iam.GetPolicyDocumentStatementArray{
			iam.GetPolicyDocumentStatementArgs{
				Actions: pulumi.StringArray{pulumi.String("sts:AssumeRole")},
				Principals: iam.GetPolicyDocumentStatementPrincipalArray{
					iam.GetPolicyDocumentStatementPrincipalArgs{
						Type:        pulumi.String("Service"),
						Identifiers: pulumi.StringArray{pulumi.String("lambda.amazonaws.com")},
					},
				},
			},
		},
	})

	role, err := iam.NewRole(ctx, "handler-role", &iam.RoleArgs{
		AssumeRolePolicy: assume.Json(),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring handler role: %w", err)
	}

	_, err = iam.NewRolePolicyAttachment(ctx, "handler-logs", &iam.RolePolicyAttachmentArgs{
		Role:      role.Name,
		PolicyArn: pulumi.String(iam.ManagedPolicyAWSLambdaBasicExecutionRole),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring handler log policy: %w", err)
	}

	// Full access to the table and its indexes.
	tablePolicy := args.Table.Table.Arn.ApplyT(func(arn string) (string, error) {
		doc := map[string]any{
			"Version": "2012-10-17",
			"Statement": []map[string]any{{
				"Effect":   "Allow",
				"Action":   []string{"dynamodb:*"},
				"Resource": []string{arn, arn + "/index/*"},
			}},
		}
		b, err := json.Marshal(doc)
		return string(b), err
	}).(pulumi.StringOutput)

	_, err = iam.NewRolePolicy(ctx, "handler-table-access", &iam.RolePolicyArgs{
		Role:   role.ID(),
		Policy: tablePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("declaring handler table policy: %w", err)
	}

	fn, err := lambda.NewFunction(ctx, "request-handler", &lambda.FunctionArgs{
		Role:       role.Arn,
		Runtime:    pulumi.String(cfg.Function.Runtime),
		Handler:    pulumi.String(cfg.Function.Handler),
		Code:       pulumi.NewFileArchive(cfg.Function.CodePath),
		MemorySize: pulumi.Int(cfg.Function.MemoryMB),
		Timeout:    pulumi.Int(cfg.Function.TimeoutSeconds),
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: pulumi.StringMap{
				tableNameEnv: args.Table.Table.Name,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring request handler: %w", err)
	}

	return &Handler{Role: role, Function: fn}, nil
}
