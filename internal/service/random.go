package service

import (
	"math/rand/v2"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
)

// Randomizer источник случайности для выбора пары и ключей новых персонажей
type Randomizer interface {
	// Gender равновероятно выбирает Male или Female
	Gender() entity.Gender
	// Float64 возвращает число из [0, 1)
	Float64() float64
}

type mathRandomizer struct{}

// NewRandomizer возвращает Randomizer поверх math/rand/v2 (безопасен для горутин)
func NewRandomizer() Randomizer {
	return mathRandomizer{}
}

func (mathRandomizer) Gender() entity.Gender {
	return entity.Genders[rand.IntN(len(entity.Genders))]
}

func (mathRandomizer) Float64() float64 {
	return rand.Float64()
}
