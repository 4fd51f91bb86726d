package loader

import "github.com/websublime/vite-open-api-server-sub004/pkg/faker"

// fakerScope exposes the faker to JS under conventional camelCase names.
// Closures are used instead of reflected methods so the JS surface is an
// explicit, stable contract.
func fakerScope(f *faker.Faker) map[string]any {
	return map[string]any{
		"firstName":   f.FirstName,
		"lastName":    f.LastName,
		"fullName":    f.FullName,
		"userName":    f.UserName,
		"email":       f.Email,
		"uuid":        f.UUID,
		"int":         f.Int,
		"float":       f.Float,
		"bool":        f.Bool,
		"price":       f.Price,
		"productName": f.ProductName,
		"company":     f.Company,
		"word":        f.Word,
		"sentence":    f.Sentence,
		"city":        f.City,
		"country":     f.Country,
		"street":      f.Street,
		"phone":       f.Phone,
		"url":         f.URL,
		"ipv4":        f.IPv4,
		"color":       f.Color,
		"dateRecent":  f.DateRecent,
		"datePast":    f.DatePast,
	}
}
