package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/me/rtodash/pkg/model"
)

func newLoginCmd() *cobra.Command {
	var req model.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an agent",
		Long:  "Sign in to the reminder service and store the session token locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if err := prompt(cmd, in, "Email", &req.Email); err != nil {
				return err
			}
			if err := prompt(cmd, in, "Password", &req.Password); err != nil {
				return err
			}
			if err := validateInput(req); err != nil {
				return err
			}

			res := current.Auth.Login(cmd.Context(), req.Email, req.Password)
			if !res.Success {
				return finish(cmd, errors.New(res.Error))
			}
			return finish(cmd, nil)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Agent email (prompted if omitted)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted if omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req model.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an agent account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			for _, f := range []struct {
				label string
				dst   *string
			}{
				{"Name", &req.Name},
				{"Email", &req.Email},
				{"Mobile number", &req.Mobile},
				{"Password", &req.Password},
			} {
				if err := prompt(cmd, in, f.label, f.dst); err != nil {
					return err
				}
			}
			if err := validateInput(req); err != nil {
				return err
			}

			res := current.Auth.Register(cmd.Context(), req)
			if !res.Success {
				return finish(cmd, errors.New(res.Error))
			}
			return finish(cmd, nil)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email")
	cmd.Flags().StringVar(&req.Mobile, "mobile", "", "10 digit mobile number")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password, at least 8 characters")
	cmd.Flags().StringVar(&req.CompanyName, "company", "", "Company name (optional)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			current.Auth.Logout(cmd.Context())
			return finish(cmd, nil)
		},
	}
}

// prompt fills *dst from in when the flag was left empty.
func prompt(cmd *cobra.Command, in *bufio.Reader, label string, dst *string) error {
	if *dst != "" {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	*dst = strings.TrimSpace(line)
	return nil
}

var inputValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// validateInput rejects bad form input before it reaches the API.
func validateInput(v any) error {
	err := inputValidator.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" is not a valid email address")
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s digits", fe.Field(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
