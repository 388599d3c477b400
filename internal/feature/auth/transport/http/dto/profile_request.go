package dto

// UpdateProfileReq is the body of PATCH /user/update. Omitted fields are left as
// they are; an empty avatar clears it.
type UpdateProfileReq struct {
	Nickname *string `json:"nickname" binding:"omitnil,min=1,max=150"`
	Avatar   *string `json:"avatar" binding:"omitnil,max=512"`
}
