package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Gender пол персонажа. Пары всегда составляются из персонажей одного пола.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Genders перечисляет допустимые значения в фиксированном порядке
var Genders = []Gender{GenderMale, GenderFemale}

// IsValid проверяет, входит ли значение в допустимый набор
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// Opposite возвращает противоположный пол
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// ParseGender нормализует пол из пользовательского ввода ("male", "FEMALE" и т.д.)
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("unknown gender %q", s)
	}
}

// RandomKey двумерный ключ [r, 0], используемый для случайной выборки через
// поиск ближайших точек. Хранится в двух колонках random_x / random_y,
// индекс GiST построен по выражению point(random_x, random_y).
type RandomKey struct {
	X float64 `gorm:"column:x;not null"`
	Y float64 `gorm:"column:y;not null;default:0"`
}

// NewRandomKey создает ключ из случайного скаляра; вторая координата всегда 0
func NewRandomKey(r float64) RandomKey {
	return RandomKey{X: r, Y: 0}
}

// MarshalJSON отдает ключ в виде пары [x, y], как его видит клиент
func (k RandomKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{k.X, k.Y})
}

// UnmarshalJSON принимает пару [x, y]
func (k *RandomKey) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	k.X, k.Y = pair[0], pair[1]
	return nil
}

// Character персонаж EVE Online, участвующий в голосовании
type Character struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	CharacterID string    `gorm:"size:32;not null;uniqueIndex" json:"characterId"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Race        string    `gorm:"size:50;not null;index:idx_characters_race" json:"race"`
	Bloodline   string    `gorm:"size:50;not null;index:idx_characters_bloodline" json:"bloodline"`
	Gender      Gender    `gorm:"size:10;not null;index:idx_characters_pool,priority:1" json:"gender"`
	Random      RandomKey `gorm:"embedded;embeddedPrefix:random_" json:"randomKey"`
	Voted       bool      `gorm:"not null;default:false;index:idx_characters_pool,priority:2" json:"voted"`
	Wins        int64     `gorm:"not null;default:0" json:"wins"`
	Losses      int64     `gorm:"not null;default:0" json:"losses"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName определяет имя таблицы для GORM
func (Character) TableName() string {
	return "characters"
}

// Validate проверяет инварианты персонажа перед сохранением
func (c *Character) Validate() error {
	if strings.TrimSpace(c.CharacterID) == "" {
		return fmt.Errorf("character id is empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character %s: name is empty", c.CharacterID)
	}
	if strings.TrimSpace(c.Race) == "" {
		return fmt.Errorf("character %s: race is empty", c.CharacterID)
	}
	if strings.TrimSpace(c.Bloodline) == "" {
		return fmt.Errorf("character %s: bloodline is empty", c.CharacterID)
	}
	if !c.Gender.IsValid() {
		return fmt.Errorf("character %s: invalid gender %q", c.CharacterID, c.Gender)
	}
	return nil
}

// WinRatio доля побед среди всех сравнений; 0 если персонаж еще не участвовал
func (c *Character) WinRatio() float64 {
	total := c.Wins + c.Losses
	if total == 0 {
		return 0
	}
	return float64(c.Wins) / float64(total)
}
