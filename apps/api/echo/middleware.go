package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/user"
)

// centerMiddleware resolves the Center addressed by the request (host or center header).
// When optional, requests addressed to no known center go through without one.
func centerMiddleware(centers *center.Service, header string, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			c, err := centers.Resolve(req.Context(), req.Host, req.Header.Get(header))
			switch err {
			case nil:
				ctx.Set(contextCenterKey, c)
			case center.ErrNotFound:
				if !optional {
					return errCenterNotFound
				}
			case center.ErrCenterInactive:
				return errCenterUnavailable
			default:
				return errors.Wrap(err, "resolving center")
			}
			return next(ctx)
		}
	}
}

// centerMemberMiddleware rejects users of another center and non-super users of no center. Super users pass.
func centerMemberMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsSuper && claims.CenterID == "" {
				return errHttpForbidden
			}
			if c, ok := getContextCenter(ctx); ok && !claims.IsSuper && claims.CenterID != c.ID {
				return errCenterMismatch
			}
			return next(ctx)
		}
	}
}

// roleMiddleware only lets through users holding a role starting with one of `prefixes`. Super users pass.
func roleMiddleware(prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuper || claims.HasAnyRole(prefixes...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func getContextCenter(ctx echo.Context) (center.Center, bool) {
	c, ok := ctx.Get(contextCenterKey).(center.Center)
	return c, ok
}

func mustContextCenter(ctx echo.Context) (center.Center, error) {
	if c, ok := getContextCenter(ctx); ok {
		return c, nil
	}
	return center.Center{}, errCenterNotFound
}

// scopeCenterID is the center ID data access is restricted to:
// the addressed center, else the center of the (non super) user, else any center.
// Non-super users without a center never get here: centerMemberMiddleware rejects them.
func scopeCenterID(ctx echo.Context) string {
	if c, ok := getContextCenter(ctx); ok {
		return c.ID
	}
	if claims, err := getContextClaims(ctx); err == nil && !claims.IsSuper {
		return claims.CenterID
	}
	return ""
}

// requireScope is scopeCenterID for operations that must target a center.
func requireScope(ctx echo.Context) (string, error) {
	if id := scopeCenterID(ctx); id != "" {
		return id, nil
	}
	if claims, err := getContextClaims(ctx); err == nil && !claims.IsSuper {
		return "", errHttpForbidden
	}
	return "", errCenterNotFound
}

// parentView returns the ID of the context user when they only access the center as a parent.
func parentView(ctx echo.Context) (string, bool) {
	claims, err := getContextClaims(ctx)
	if err != nil || claims.IsStaff() || !claims.IsParent {
		return "", false
	}
	return claims.Subject, true
}

var readerRoles = append([]string{user.RoleParent}, user.StaffRoles...)
