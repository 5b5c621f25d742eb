package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func GetTraceID(c *gin.Context) (string, error) {
	traceID := c.GetString(pkg.TraceId)
	if IsEmpty(traceID) {
		return "", errors.New("trace id is empty")
	}
	return traceID, nil
}

// GetUserID returns the authenticated caller set by the auth middleware.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get(pkg.UserId)
	if !ok {
		return uuid.Nil, errors.New("user id is missing")
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errors.New("user id is invalid")
	}
	return id, nil
}

// GetUserRole returns the caller role, defaulting to RoleUser.
func GetUserRole(c *gin.Context) pkg.Role {
	if v, ok := c.Get(pkg.UserRole); ok {
		if role, ok := v.(pkg.Role); ok {
			return role
		}
	}
	return pkg.RoleUser
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if IsEmpty(tag) {
			continue
		}
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors logs every failed field of a validated config and returns
// a single error naming the env vars that need fixing.
func FormatConfigErrors(logger *zap.Logger, err error, cfg interface{}) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		name := fe.StructField()
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if tag := f.Tag.Get("mapstructure"); !IsEmpty(tag) {
				name = tag
			}
		}
		logger.Error("invalid_config_value",
			zap.String("env", "APP_"+name),
			zap.String("rule", fe.Tag()),
			zap.String("param", fe.Param()))
		fields = append(fields, fmt.Sprintf("APP_%s(%s)", name, fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}
