package domain

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

// Field limits in runes.
const (
	MaxFieldRunes       = 200
	MaxDescriptionRunes = 4000
)

// ClaimInput is what a farmer submits; optional fields may be blank.
type ClaimInput struct {
	Name              string
	Aadhaar           string
	Phone             string
	Email             string
	FarmLocation      string
	FarmSize          string
	CropType          string
	DamageDescription string
	DateFrom          string
	DateTo            string
	RainfallRange     string
}

type EvidenceFile struct {
	Filename string
	Body     io.Reader
}

// Claim is the serialized claim stored with the document record.
type Claim struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Aadhaar           string          `json:"aadhaar"`
	Phone             string          `json:"phone"`
	Email             string          `json:"email"`
	FarmLocation      string          `json:"farmLocation"`
	Location          Location        `json:"location"`
	FarmSize          string          `json:"farmSize"`
	CropType          string          `json:"cropType"`
	DamageDescription string          `json:"damageDescription"`
	DateFrom          string          `json:"dateFrom"`
	DateTo            string          `json:"dateTo"`
	RainfallRange     string          `json:"rainfallRange"`
	WeatherSummary    *WeatherSummary `json:"weather_summary"`
	Evidence          []string        `json:"evidence,omitempty"`
}

// ClaimRecord is the persisted document record.
type ClaimRecord struct {
	ID           string          `json:"id"`
	Data         json.RawMessage `json:"data"`
	DocumentPath string          `json:"pdf_path"`
	DocumentHash string          `json:"pdf_hash"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SubmissionResult is returned to the caller of a successful submission.
type SubmissionResult struct {
	ClaimID         string          `json:"claim_id"`
	DocumentURL     string          `json:"pdf"`
	DocumentHash    string          `json:"pdf_hash"`
	SavedImages     []string        `json:"saved_images"`
	WeatherSummary  *WeatherSummary `json:"weather_summary"`
	ImageryFallback bool            `json:"-"`
}

// Verification compares the stored document with its recorded fingerprint.
type Verification struct {
	ClaimID      string `json:"claim_id"`
	RecordedHash string `json:"pdf_hash"`
	CurrentHash  string `json:"current_hash"`
	Match        bool   `json:"match"`
	Pages        int    `json:"pages"`
}

// ClaimSubmitted is the notification emitted after a record is persisted.
type ClaimSubmitted struct {
	ClaimID   string    `json:"claim_id"`
	PDFHash   string    `json:"pdf_hash"`
	CropType  string    `json:"crop_type"`
	WeatherOK bool      `json:"weather_ok"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields and formats, returning the parsed location.
func (in ClaimInput) Validate() (Location, error) {
	required := []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"aadhaar", in.Aadhaar},
		{"phone", in.Phone},
		{"farmLocation", in.FarmLocation},
		{"cropType", in.CropType},
		{"damageDescription", in.DamageDescription},
		{"dateFrom", in.DateFrom},
		{"dateTo", in.DateTo},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return Location{}, Invalid("validate claim", field.name+" is required")
		}
	}
	if err := in.checkLengths(); err != nil {
		return Location{}, err
	}

	loc, err := ParseLocation(in.FarmLocation)
	if err != nil {
		return Location{}, err
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(in.DateFrom)); err != nil {
		return Location{}, Invalid("validate claim", "dateFrom must be YYYY-MM-DD")
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(in.DateTo)); err != nil {
		return Location{}, Invalid("validate claim", "dateTo must be YYYY-MM-DD")
	}
	return loc, nil
}

func (in ClaimInput) checkLengths() error {
	fields := []struct {
		name  string
		value string
		limit int
	}{
		{"name", in.Name, MaxFieldRunes},
		{"aadhaar", in.Aadhaar, MaxFieldRunes},
		{"phone", in.Phone, MaxFieldRunes},
		{"email", in.Email, MaxFieldRunes},
		{"farmLocation", in.FarmLocation, MaxFieldRunes},
		{"farmSize", in.FarmSize, MaxFieldRunes},
		{"cropType", in.CropType, MaxFieldRunes},
		{"damageDescription", in.DamageDescription, MaxDescriptionRunes},
		{"dateFrom", in.DateFrom, MaxFieldRunes},
		{"dateTo", in.DateTo, MaxFieldRunes},
		{"rainfallRange", in.RainfallRange, MaxFieldRunes},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.limit {
			return Invalid("validate claim", fmt.Sprintf("%s exceeds %d characters", f.name, f.limit))
		}
	}
	return nil
}

// NewClaim builds the claim body from validated input.
func NewClaim(id string, in ClaimInput, loc Location) Claim {
	return Claim{
		ID:                id,
		Name:              in.Name,
		Aadhaar:           in.Aadhaar,
		Phone:             in.Phone,
		Email:             in.Email,
		FarmLocation:      in.FarmLocation,
		Location:          loc,
		FarmSize:          in.FarmSize,
		CropType:          in.CropType,
		DamageDescription: in.DamageDescription,
		DateFrom:          strings.TrimSpace(in.DateFrom),
		DateTo:            strings.TrimSpace(in.DateTo),
		RainfallRange:     in.RainfallRange,
	}
}
