package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/zencounsel/counsel-api/pkg/errors"
)

// BindJSON decodes the request body into req and runs its binding tags.
// Every failure comes back as an *errors.AppError ready for
// httputil.RespondWithError. An empty body is validated as an empty object
// so required fields are reported by name.
func BindJSON(c *gin.Context, req interface{}) error {
	err := c.ShouldBindJSON(req)
	if stderrors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err == nil {
		return nil
	}
	return BindError(err)
}

// BindError translates decoding and validation errors.
func BindError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewBadRequest("Request body too large", err)
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewBadRequest("Invalid JSON body", err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingFields(missing...)
	}
	appErr := errors.NewValidation("Invalid value for " + invalid[0])
	appErr.Fields = invalid
	return appErr
}

// QueryInt reads a non-negative integer query parameter, falling back to def
// when it is absent or malformed.
func QueryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// FirstNonEmpty returns the first non-blank value. Used to fold the field
// spellings older clients send onto one name.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// StringList decodes either a JSON array of strings or a single string,
// which some clients send for one-element lists.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if strings.TrimSpace(one) == "" {
		*l = nil
		return nil
	}
	*l = StringList{one}
	return nil
}
