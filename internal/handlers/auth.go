package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/auth"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/types"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
)

func (h *Handler) authService() *services.AuthService {
	return services.NewAuthService(db.DB, h.Config.DefaultAlertThreshold)
}

func (h *Handler) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.Config.Domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func userResponse(user *models.User) types.UserResponse {
	return types.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// issueSession answers with the user and a fresh token, also set as cookie.
func (h *Handler) issueSession(ctx *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.setTokenCookie(ctx, token, int(auth.TokenTTL().Seconds()))

	ctx.JSON(status, gin.H{
		"user":  userResponse(user),
		"token": token,
	})
}

func (h *Handler) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := h.authService().Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	zap.L().Info("user registered", zap.Uint("user_id", user.ID))
	h.issueSession(ctx, http.StatusCreated, user)
}

func (h *Handler) Login(ctx *gin.Context) {
	var req services.LoginInput
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := h.authService().Login(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.issueSession(ctx, http.StatusOK, user)
}

func (h *Handler) Logout(ctx *gin.Context) {
	h.setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    currentUser.ID,
			Name:  currentUser.Name,
			Email: currentUser.Email,
		},
	})
}

func (h *Handler) UpdateMe(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := h.authService().UpdateProfile(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    userResponse(user),
	})
}

func (h *Handler) DeleteMe(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Password is required for account deletion"})
		return
	}

	if err := h.authService().DeleteAccount(ctx.Request.Context(), userID, req.Password); err != nil {
		respondError(ctx, err)
		return
	}

	zap.L().Info("account deleted", zap.Uint("user_id", userID))
	h.setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
