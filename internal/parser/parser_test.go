package parser

import (
	"errors"
	"testing"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Product
		wantErr bool
	}{
		{
			name:  "multi-word name with decimal dot",
			input: "Оранжевые апельсины 2 200.22",
			want:  Product{Name: "Оранжевые апельсины", Quantity: 2, TotalPrice: 200.22},
		},
		{
			name:  "decimal comma",
			input: "Хлеб 1 45,5",
			want:  Product{Name: "Хлеб", Quantity: 1, TotalPrice: 45.5},
		},
		{
			name:  "newlines and repeated spaces collapse",
			input: "Сыр\n  твёрдый   3\n999",
			want:  Product{Name: "Сыр твёрдый", Quantity: 3, TotalPrice: 999},
		},
		{name: "single token", input: "x", wantErr: true},
		{name: "two tokens", input: "milk 2", wantErr: true},
		{name: "zero quantity", input: "name 0 5", wantErr: true},
		{name: "zero price", input: "name 1 0", wantErr: true},
		{name: "zero price with decimals", input: "name 1 0,00", wantErr: true},
		{name: "negative price", input: "name 1 -5", wantErr: true},
		{name: "fractional quantity", input: "name 1.5 5", wantErr: true},
		{name: "signed quantity", input: "name +2 5", wantErr: true},
		{name: "price not a number", input: "name 2 abc", wantErr: true},
		{name: "exponent price", input: "name 2 1e3", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProduct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProduct(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProduct) {
					t.Errorf("expected ErrInvalidProduct, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseProduct(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsPhone(t *testing.T) {
	valid := []string{
		"89991234567",
		"+79991234567",
		"79991234567",
		"9991234567",
		"+7(999)123-45-67",
		"8 (999) 123-45-67",
		"1234567",
		"8-999-123-45-67",
	}
	for _, s := range valid {
		if !IsPhone(s) {
			t.Errorf("IsPhone(%q) = false, want true", s)
		}
	}

	invalid := []string{
		"",
		"123456",
		"+1 555 123 4567 89",
		"phone",
		"8999123456789",
		"https://www.tinkoff.ru/rm/ivanov.ivan1/AbC12",
	}
	for _, s := range invalid {
		if IsPhone(s) {
			t.Errorf("IsPhone(%q) = true, want false", s)
		}
	}
}

func TestIsPaymentLink(t *testing.T) {
	valid := []string{
		"https://www.tinkoff.ru/rm/ivanov.ivan1/AbC12",
		"https://tinkoff.ru/rm/petrova.anna12345/x9Y8z7/",
		"http://www.tinkoff.ru/rm/Smirnov.Oleg77/Q1",
	}
	for _, s := range valid {
		if !IsPaymentLink(s) {
			t.Errorf("IsPaymentLink(%q) = false, want true", s)
		}
	}

	invalid := []string{
		"https://www.tinkof.ru/rm/ivanov.ivan1/AbC12",
		"https://www.tinkoff.ru/rm/ivanov/AbC12",
		"https://www.tinkoff.ru/rm/ivanov.ivan/AbC12",
		"https://example.com/rm/ivanov.ivan1/AbC12",
		"89991234567",
	}
	for _, s := range invalid {
		if IsPaymentLink(s) {
			t.Errorf("IsPaymentLink(%q) = true, want false", s)
		}
	}
}

func TestParseContact(t *testing.T) {
	const (
		phone = "89991234567"
		link  = "https://www.tinkoff.ru/rm/ivanov.ivan1/AbC12"
	)

	tests := []struct {
		name     string
		input    string
		wantLink bool
		wantErr  bool
	}{
		{name: "phone only", input: phone},
		{name: "phone only, padded", input: "  " + phone + "\n"},
		{name: "phone and link on one line", input: phone + " " + link, wantLink: true},
		{name: "link and phone on one line", input: link + " " + phone, wantLink: true},
		{name: "phone then link on two lines", input: phone + "\n" + link, wantLink: true},
		{name: "link then phone on two lines", input: link + "\n" + phone, wantLink: true},
		{name: "windows line endings", input: phone + "\r\n" + link, wantLink: true},
		{name: "two phones", input: phone + "\n" + phone, wantErr: true},
		{name: "two links", input: link + " " + link, wantErr: true},
		{name: "link only", input: link, wantErr: true},
		{name: "three lines", input: phone + "\n" + link + "\n" + phone, wantErr: true},
		{name: "three tokens", input: phone + " " + link + " extra", wantErr: true},
		{name: "phone with spaces on one line", input: "8 999 123 45 67", wantErr: true},
		{name: "garbage", input: "call me maybe", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContact(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseContact(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidContact) {
					t.Errorf("expected ErrInvalidContact, got %v", err)
				}
				return
			}
			if got.Phone != phone {
				t.Errorf("Phone = %q, want %q", got.Phone, phone)
			}
			if tt.wantLink {
				if got.Link == nil || *got.Link != link {
					t.Errorf("Link = %v, want %q", got.Link, link)
				}
			} else if got.Link != nil {
				t.Errorf("Link = %q, want nil", *got.Link)
			}
		})
	}
}
