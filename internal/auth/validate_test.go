package auth

import "testing"

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		userName  string
		badFields []string
	}{
		{"all valid", "alice@example.com", "Str0ngPass", "Alice", nil},
		{"bad email", "not-an-email", "Str0ngPass", "Alice", []string{"email"}},
		{"email missing domain", "alice@", "Str0ngPass", "Alice", []string{"email"}},
		{"short password", "alice@example.com", "Ab1", "Alice", []string{"password"}},
		{"no digit", "alice@example.com", "Password", "Alice", []string{"password"}},
		{"no upper case", "alice@example.com", "password1", "Alice", []string{"password"}},
		{"no lower case", "alice@example.com", "PASSWORD1", "Alice", []string{"password"}},
		{"multibyte counts runes not bytes", "alice@example.com", "Ää1Öö", "Alice", []string{"password"}},
		{"multibyte long enough", "alice@example.com", "Ää1Ööxyz", "Alice", nil},
		{"short name", "alice@example.com", "Str0ngPass", "A", []string{"name"}},
		{"everything wrong", "nope", "weak", "", []string{"email", "password", "name"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := ValidateRegistration(tc.email, tc.password, tc.userName)
			if len(fields) != len(tc.badFields) {
				t.Fatalf("expected %d field errors, got %d: %v", len(tc.badFields), len(fields), fields)
			}
			for _, f := range tc.badFields {
				if _, ok := fields[f]; !ok {
					t.Errorf("expected error on field %q, got %v", f, fields)
				}
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if fields := ValidatePassword("Str0ngPass"); len(fields) != 0 {
		t.Errorf("expected no errors, got %v", fields)
	}
	if fields := ValidatePassword("weak"); len(fields) == 0 {
		t.Error("expected complexity error for weak password")
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "EDITOR", "VIEWER"} {
		role, err := ParseRole(valid)
		if err != nil || string(role) != valid {
			t.Errorf("expected %q to parse, got %q err=%v", valid, role, err)
		}
	}
	for _, invalid := range []string{"", "admin", "ROOT", "viewer "} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("expected %q to be rejected", invalid)
		}
	}
}
