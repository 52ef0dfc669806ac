package models

type Category string

const (
	CategoryNature   Category = "NATURE"
	CategoryAbstract Category = "ABSTRACT"
	CategoryMinimal  Category = "MINIMAL"
	CategorySpace    Category = "SPACE"
	CategoryCity     Category = "CITY"
	CategoryAnimals  Category = "ANIMALS"
	CategoryGaming   Category = "GAMING"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryNature, CategoryAbstract, CategoryMinimal, CategorySpace,
		CategoryCity, CategoryAnimals, CategoryGaming:
		return true
	}
	return false
}

// Resolution is the target screen family of a wallpaper.
type Resolution string

const (
	ResolutionMobile    Resolution = "MOBILE"
	ResolutionTablet    Resolution = "TABLET"
	ResolutionDesktop   Resolution = "DESKTOP"
	ResolutionUltrawide Resolution = "ULTRAWIDE"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionMobile, ResolutionTablet, ResolutionDesktop, ResolutionUltrawide:
		return true
	}
	return false
}
