package stack

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/dynamodb"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Partition key of the results table. Items are looked up by test run id.
const tableHashKey = "TestId"

// Table is the results table the handler writes into.
type Table struct {
	Table *dynamodb.Table
}

func newTable(ctx *pulumi.Context) (*Table, error) {
	table, err := dynamodb.NewTable(ctx, "results-table", &dynamodb.TableArgs{
		Attributes: dynamodb.TableAttributeArray{
			dynamodb.TableAttributeArgs{
				Name: pulumi.String(tableHashKey),
				Type: pulumi.String("S"),
			},
		},
		HashKey:       pulumi.String(tableHashKey),
		ReadCapacity:  pulumi.Int(5),
		WriteCapacity: pulumi.Int(5),
	})
	if err != nil {
		return nil, fmt.Errorf("declaring results table: %w", err)
	}

	return &Table{Table: table}, nil
}
