package nostd

import (
	"fmt"
	"net/http"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/labstack/echo/v4"
)

// CustomValidator echo参数校验器，校验失败时返回翻译后的错误信息
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化翻译器
func (cv *CustomValidator) TransInit() error {
	zhT := zh.New()
	enT := en.New()
	uni := ut.New(enT, zhT)

	trans, ok := uni.GetTranslator("zh")
	if !ok {
		return fmt.Errorf("uni.GetTranslator(zh) failed")
	}
	cv.trans = trans

	return zhTranslations.RegisterDefaultTranslations(cv.Validator, trans)
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.Validator.Struct(i); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		for _, e := range errs {
			return echo.NewHTTPError(http.StatusBadRequest, e.Translate(cv.trans))
		}
	}
	return nil
}
