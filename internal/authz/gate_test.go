package authz

import (
	"testing"

	"github.com/tjfontaine/recommendation-gateway/internal/domain"
)

func TestAuthorizeOperation(t *testing.T) {
	clustering := domain.Clustering{PlaylistName: "road trip", K: 10, NNeighbors: 5}
	health := domain.Health{}

	tests := []struct {
		name      string
		principal domain.Principal
		op        domain.Operation
		wantErr   bool
	}{
		{"user runs clustering", domain.NewPrincipal("u", domain.RoleUser), clustering, false},
		{"moderator runs clustering", domain.NewPrincipal("m", domain.RoleModerator), clustering, false},
		{"admin runs clustering", domain.NewPrincipal("a", domain.RoleAdmin), clustering, false},
		{"no roles runs clustering", domain.NewPrincipal("n"), clustering, true},
		{"zero principal runs clustering", domain.Principal{}, clustering, true},
		{"admin runs health", domain.NewPrincipal("a", domain.RoleAdmin), health, false},
		{"user runs health", domain.NewPrincipal("u", domain.RoleUser), health, true},
		{"moderator runs health", domain.NewPrincipal("m", domain.RoleModerator), health, true},
		{"user and admin run health", domain.NewPrincipal("ua", domain.RoleUser, domain.RoleAdmin), health, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeOperation(tt.principal, tt.op)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AuthorizeOperation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			gwErr, ok := domain.AsGatewayError(err)
			if !ok || gwErr.Kind != domain.ErrorKindForbidden {
				t.Fatalf("error = %v, want forbidden", err)
			}
			if len(gwErr.RequiredRoles) != len(tt.op.RequiredRoles()) {
				t.Errorf("RequiredRoles = %v, want %v", gwErr.RequiredRoles.Strings(), tt.op.RequiredRoles().Strings())
			}
		})
	}
}
