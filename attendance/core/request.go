package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

// ClockRequest is a clock-in or clock-out as sent by a device. Date, SessionType
// and Remarks are hints from the client and are never used to decide anything.
type ClockRequest struct {
	StudentID    int32    `json:"-" validate:"gt=0"`
	PracticumID  int32    `json:"practicumId" binding:"required,gt=0" validate:"required,gt=0"`
	Date         *string  `json:"date,omitempty"`
	SessionType  *string  `json:"sessionType,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" binding:"omitempty,latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" binding:"omitempty,longitude" validate:"omitempty,longitude"`
	Address      *string  `json:"address,omitempty" binding:"omitempty,max=255" validate:"omitempty,max=255"`
	LocationType *string  `json:"locationType,omitempty" binding:"omitempty,max=50" validate:"omitempty,max=50"`
	DeviceType   *string  `json:"deviceType,omitempty" binding:"omitempty,max=50" validate:"omitempty,max=50"`
	DeviceUnit   *string  `json:"deviceUnit,omitempty" binding:"omitempty,max=100" validate:"omitempty,max=100"`
	MacAddress   *string  `json:"macAddress,omitempty" binding:"omitempty,max=50" validate:"omitempty,max=50"`
	Remarks      *string  `json:"remarks,omitempty" binding:"omitempty,max=255" validate:"omitempty,max=255"`
	PhotoURL     *string  `json:"photoUrl,omitempty" binding:"omitempty,max=255" validate:"omitempty,max=255"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
		}
		return name
	})
	return v
}

// Validate rejects malformed requests before any state is read.
func (r ClockRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldMessage(fe))
			}
			return ValidationError("%s", strings.Join(msgs, ", "))
		}
		return ValidationError("%v", err)
	}
	if r.Date != nil && *r.Date != "" {
		if _, err := utils.ParseDate(*r.Date); err != nil {
			return ValidationError("%v", err)
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "gt":
		return fmt.Sprintf("%s is required", fe.Field())
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid %s", fe.Field(), fe.Tag())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation for %s", fe.Field(), fe.Tag())
}

// Meta copies the device and location data of the request.
func (r ClockRequest) Meta() model.ClockMeta {
	return model.ClockMeta{
		DeviceType:   r.DeviceType,
		DeviceUnit:   r.DeviceUnit,
		MacAddress:   r.MacAddress,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Address:      r.Address,
		LocationType: r.LocationType,
		Remarks:      r.Remarks,
		PhotoURL:     r.PhotoURL,
	}
}
