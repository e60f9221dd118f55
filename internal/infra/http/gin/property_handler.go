package ginserver

import (
	"net/http"
	"path"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	propertyapp "staybook/internal/app/handlers/property"
	"staybook/internal/app/queries"
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h PropertyHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	q := propertyapp.GetPropertyQuery{PropertyID: c.Param("id")}
	result, err := queries.Ask[propertyapp.GetPropertyQuery, dto.Property](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Bookings(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	q := propertyapp.ListBookingsQuery{PropertyID: c.Param("id")}
	result, err := queries.Ask[propertyapp.ListBookingsQuery, []dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": result})
}

func (h PropertyHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	checkIn, err := parseDay(c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in date"})
		return
	}
	checkOut, err := parseDay(c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_out date"})
		return
	}
	q := propertyapp.QuoteQuery{
		PropertyID: c.Param("id"),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	result, err := queries.Ask[propertyapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) UploadPhoto(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	propertyID := c.Param("id")
	objectKey := path.Join("properties", propertyID, uuid.NewString()+path.Ext(header.Filename))
	cmd := propertyapp.AddPhotoCommand{
		PropertyID:  propertyID,
		ObjectKey:   objectKey,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}
	result, err := commands.Dispatch[propertyapp.AddPhotoCommand, *propertyapp.AddPhotoResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ PropertyHTTP = PropertyHandler{}
