package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/tasks"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/validation"
)

func registerTaskRoutes(r *gin.RouterGroup, v *validatorv10.Validate, svc *tasks.Service) {
	r.POST("/orders/:id/tasks", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.CreateTaskRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		task, err := svc.Create(c.Request.Context(), c.Param("id"), req.Type, req.AssignedTo, req.Priority, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	})

	r.PUT("/orders/:id/tasks/:type", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.UpdateTaskRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		task, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), c.Param("type"), req.Status, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	})

	r.GET("/orders/:id/tasks", func(c *gin.Context) {
		progress, err := svc.Progress(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	})
}
