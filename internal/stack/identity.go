package stack

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cognito"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Identity is the user directory and its web client registration. Users
// sign themselves up and verify by email; the client may redirect back to
// the local development origin or to the CDN's domain.
type Identity struct {
	Pool   *cognito.UserPool
	Client *cognito.UserPoolClient
}

type IdentityArgs struct {
	Cdn       *Cdn
	DevOrigin string
}

func newIdentity(ctx *pulumi.Context, args IdentityArgs) (*Identity, error) {
	pool, err := cognito.NewUserPool(ctx, "user-pool", &cognito.UserPoolArgs{
		AutoVerifiedAttributes: pulumi.StringArray{pulumi.String("email")},
		AdminCreateUserConfig: &cognito.UserPoolAdminCreateUserConfigArgs{
			AllowAdminCreateUserOnly: pulumi.Bool(false),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring user pool: %w", err)
	}

	// The CDN domain is only known after the distribution is planned; the
	// engine resolves the forward reference.
	redirects := pulumi.StringArray{
		pulumi.String(args.DevOrigin),
		pulumi.Sprintf("https://%s", args.Cdn.Distribution.DomainName),
	}

	client, err := cognito.NewUserPoolClient(ctx, "user-pool-client", &cognito.UserPoolClientArgs{
		UserPoolId:                      pool.ID(),
		GenerateSecret:                  pulumi.Bool(false),
		CallbackUrls:                    redirects,
		LogoutUrls:                      redirects,
		AllowedOauthFlowsUserPoolClient: pulumi.Bool(true),
		AllowedOauthFlows:               pulumi.StringArray{pulumi.String("code")},
		AllowedOauthScopes: pulumi.StringArray{
			pulumi.String("email"),
			pulumi.String("openid"),
			pulumi.String("profile"),
		},
		SupportedIdentityProviders: pulumi.StringArray{pulumi.String("COGNITO")},
	})
	if err != nil {
		return nil, fmt.Errorf("declaring user pool client: %w", err)
	}

	return &Identity{Pool: pool, Client: client}, nil
}
