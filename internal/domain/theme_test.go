package domain

import "testing"

func TestThemeValidate(t *testing.T) {
	tests := []struct {
		name    string
		theme   Theme
		wantErr bool
	}{
		{name: "default", theme: DefaultTheme()},
		{name: "short form", theme: Theme{PrimaryColor: "#fff", TextColor: "#000", BackgroundColor: "#ABC"}},
		{name: "named colour", theme: Theme{PrimaryColor: "blue", TextColor: "#000", BackgroundColor: "#fff"}, wantErr: true},
		{name: "missing hash", theme: Theme{PrimaryColor: "#007bff", TextColor: "000000", BackgroundColor: "#fff"}, wantErr: true},
		{name: "empty", theme: Theme{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.theme.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestThemeScan(t *testing.T) {
	var th Theme
	if err := th.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error: %v", err)
	}
	if th != DefaultTheme() {
		t.Fatalf("Scan(nil) = %+v, want default", th)
	}

	if err := th.Scan(`{"primaryColor":"#112233"}`); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	want := Theme{PrimaryColor: "#112233", TextColor: "#ffffff", BackgroundColor: "#f8f9fa"}
	if th != want {
		t.Fatalf("Scan = %+v, want %+v", th, want)
	}

	if err := th.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestThemeValueRoundTripsThroughScan(t *testing.T) {
	in := Theme{PrimaryColor: "#010203", TextColor: "#040506", BackgroundColor: "#070809"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value type = %T, want string", v)
	}
	var out Theme
	if err := out.Scan(s); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}
