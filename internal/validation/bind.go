package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate decodes the JSON body into out and validates it. On failure
// it writes the 400 response itself; the returned error tells the handler to
// stop without writing anything more.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}

	err := v.Struct(out)
	if err == nil {
		return nil
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation_failed",
		"fields": fieldErrors(err),
	})
	return err
}

// fieldErrors flattens validator output into field -> message, so API
// consumers see which inputs to correct.
func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		fields["error"] = err.Error()
		return fields
	}
	for _, fe := range ve {
		fields[fe.StructNamespace()] = fe.Error()
	}
	return fields
}
