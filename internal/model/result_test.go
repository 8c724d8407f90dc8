package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHotel() Hotel {
	return Hotel{ID: "h1", Name: "Aurora Inn", Address: "1 Main St, Springfield, IL, USA"}
}

func TestNewRatingResult_Success(t *testing.T) {
	r, err := NewRatingResult(testHotel(), 4.6, true, 1204, true)
	require.NoError(t, err)

	assert.Equal(t, "h1", r.HotelID)
	assert.Equal(t, "Aurora Inn", r.Name)
	assert.Equal(t, 4.6, r.Rating)
	assert.Equal(t, 1204, r.ReviewCount)
	assert.Equal(t, StatusSuccess, r.Status)
}

func TestNewRatingResult_OneFieldIsEnough(t *testing.T) {
	r, err := NewRatingResult(testHotel(), 0, false, 37, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.False(t, r.RatingResolved)
	assert.True(t, r.ReviewsResolved)
}

func TestNewRatingResult_NothingResolved(t *testing.T) {
	r, err := NewRatingResult(testHotel(), 0, false, 0, false)
	require.NoError(t, err)
	assert.Equal(t, StatusPartialFailure, r.Status)
	assert.Equal(t, 0.0, r.Rating)
	assert.Equal(t, 0, r.ReviewCount)
}

func TestNewRatingResult_ClampsMildOverrange(t *testing.T) {
	r, err := NewRatingResult(testHotel(), 5.2, true, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r.Rating)
	assert.Equal(t, StatusSuccess, r.Status)
}

func TestNewRatingResult_RejectsImplausible(t *testing.T) {
	_, err := NewRatingResult(testHotel(), 47, true, 0, false)
	assert.Error(t, err)

	_, err = NewRatingResult(testHotel(), -0.1, true, 0, false)
	assert.Error(t, err)
}

func TestNewRatingResult_NegativeReviewsBecomeZero(t *testing.T) {
	r, err := NewRatingResult(testHotel(), 4.0, true, -5, true)
	require.NoError(t, err)
	assert.Equal(t, 0, r.ReviewCount)
}

func TestDefaultResult(t *testing.T) {
	r := DefaultResult(testHotel(), StatusTimeout)
	assert.Equal(t, "h1", r.HotelID)
	assert.Equal(t, "Aurora Inn", r.Name)
	assert.Equal(t, "1 Main St, Springfield, IL, USA", r.Address)
	assert.Equal(t, 0.0, r.Rating)
	assert.Equal(t, 0, r.ReviewCount)
	assert.False(t, r.RatingResolved)
	assert.Equal(t, StatusTimeout, r.Status)
}

func TestHotelValidate(t *testing.T) {
	assert.NoError(t, testHotel().Validate())
	assert.Error(t, Hotel{Name: "No ID"}.Validate())
	assert.Error(t, Hotel{ID: "no-name"}.Validate())
}
